package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/ui"
	"github.com/muurk/useradmin/internal/userform"
)

// User command flags
var (
	listSearch   string
	listPage     int
	listPageSize int
	outputFormat string

	userName     string
	userEmail    string
	userPassword string
	userPhone    string
	userAge      int
	userGender   string
	userAddress  string
	userCompany  string
	userRole     string
	userAvatar   string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List, create, and update users",
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersUpdateCmd)
	rootCmd.AddCommand(usersCmd)

	usersListCmd.Flags().StringVar(&listSearch, "search", "", "Only users whose name contains this text")
	usersListCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	usersListCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Users per page (default: profile setting)")
	usersListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")

	for _, c := range []*cobra.Command{usersCreateCmd, usersUpdateCmd} {
		c.Flags().StringVar(&userName, "name", "", "Full name")
		c.Flags().StringVar(&userEmail, "email", "", "Email address")
		c.Flags().StringVar(&userPhone, "phone", "", "Phone number")
		c.Flags().IntVar(&userAge, "age", 0, "Age")
		c.Flags().StringVar(&userGender, "gender", "", "Gender (MALE, FEMALE, OTHER)")
		c.Flags().StringVar(&userAddress, "address", "", "Postal address")
		c.Flags().StringVar(&userCompany, "company", "", "Company name or id")
		c.Flags().StringVar(&userRole, "role", "", "Role name or id")
		c.Flags().StringVar(&userAvatar, "avatar", "", "Avatar image to upload (JPEG or PNG, under 2MB)")
	}
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "Initial password (prompted when omitted)")
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Example: `  # First page of users
  useradmin users list

  # Users whose name contains "ada", as JSON
  useradmin users list --search ada --format json`,
	Args: cobra.NoArgs,
	RunE: runUsersList,
}

func runUsersList(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(cmd.Context())
	defer cancel()

	pageSize := listPageSize
	if pageSize <= 0 {
		pageSize = s.Profile.PageSize
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	page, err := s.Client.FetchUsers(ctx, backend.PageQuery(listPage, pageSize, listSearch))
	if err != nil {
		return commandFailure("Failed to list users", err)
	}

	switch outputFormat {
	case "json":
		return writeJSON(cmd.OutOrStdout(), page)
	case "table":
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderUsersTable(page.Result))
		fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d users)\n", page.Meta.Current, page.Meta.Pages, page.Meta.Total)
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected table or json)", outputFormat)
	}
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Long: `Create a user through the same checks as the interactive form.

Company and role accept a name or an id; a name must match exactly one
entry. An avatar is required.`,
	Example: `  useradmin users create --name "Ada Lovelace" --email ada@example.com \
    --address London --company Acme --role NORMAL_USER --avatar ada.png`,
	Args: cobra.NoArgs,
	RunE: runUsersCreate,
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	password := userPassword
	if password == "" {
		if password, err = ui.ReadPassword("Password:"); err != nil {
			if errors.Is(err, ui.ErrNotInteractive) {
				return fmt.Errorf("--password is required when stdin is not a terminal")
			}
			return err
		}
	}

	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
		Title:   "Create user",
		Command: "useradmin users create",
		Params:  s.headerParams(),
	}))

	values := userform.FormValues{
		Name:     userName,
		Email:    userEmail,
		Password: password,
		Phone:    userPhone,
		Age:      userAge,
		Gender:   backend.Gender(strings.ToUpper(userGender)),
		Address:  userAddress,
	}
	return submitUser(cmd, s, nil, values)
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a user",
	Long: `Update a user through the same checks as the interactive form.

Only the flags given change; everything else keeps its current value,
including the avatar. Passwords cannot be changed here.`,
	Example: `  useradmin users update 65f1c0ffee0000000000abcd --role ADMIN`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUsersUpdate,
}

func runUsersUpdate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(cmd.Context())
	defer cancel()
	record, err := s.Client.GetUser(ctx, args[0])
	if err != nil {
		return commandFailure("Failed to load user", err)
	}

	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
		Title:   "Update user",
		Command: "useradmin users update " + args[0],
		Params:  s.headerParams(),
	}))

	values := userform.ValuesFromUser(record)
	flags := cmd.Flags()
	if flags.Changed("name") {
		values.Name = userName
	}
	if flags.Changed("email") {
		values.Email = userEmail
	}
	if flags.Changed("phone") {
		values.Phone = userPhone
	}
	if flags.Changed("age") {
		values.Age = userAge
	}
	if flags.Changed("gender") {
		values.Gender = backend.Gender(strings.ToUpper(userGender))
	}
	if flags.Changed("address") {
		values.Address = userAddress
	}
	return submitUser(cmd, s, record, values)
}

// submitUser drives a form controller the way the console does: open it
// for record, apply the company, role, and avatar flags, then submit.
func submitUser(cmd *cobra.Command, s *session, record *backend.User, values userform.FormValues) error {
	notifier := &printNotifier{out: os.Stderr}
	var saved bool
	ctrl := userform.NewController(s.Client, notifier, userform.Config{
		Category: s.Profile.Category(),
		ImageURL: s.Client.ImageURL,
		Reload:   func() { saved = true },
	})
	ctrl.Open(record)
	defer ctrl.AfterClose()

	ctx, cancel := s.requestContext(cmd.Context())
	defer cancel()

	if userCompany != "" {
		opt, err := resolveOption("company", userCompany, ctrl.SearchCompanies(ctx, searchText(userCompany)))
		if err != nil {
			return err
		}
		ctrl.SelectCompany([]userform.Option{opt})
	}
	if userRole != "" {
		opt, err := resolveOption("role", userRole, ctrl.SearchRoles(ctx, searchText(userRole)))
		if err != nil {
			return err
		}
		ctrl.SelectRole([]userform.Option{opt})
	}

	if userAvatar != "" {
		file, err := userform.LoadAvatarFile(expandHome(userAvatar))
		if err != nil {
			return err
		}
		if err := ctrl.Avatar().Upload(ctx, file); err != nil {
			return commandFailure("Avatar upload failed", err)
		}
	}

	mode := ctrl.Mode()
	if err := ctrl.Submit(ctx, values); err != nil {
		var verr *userform.ValidationError
		if errors.As(err, &verr) {
			fmt.Println(ui.NewFailureResult(mode.Title()+" failed", err, nil).String())
			return err
		}
		return commandFailure(mode.Title()+" failed", err)
	}

	if saved {
		fmt.Println(savedResult(mode, record, values).String())
	}
	return nil
}

// savedResult summarizes a successful create or update.
func savedResult(mode userform.Mode, record *backend.User, values userform.FormValues) *ui.Result {
	title := "User created"
	if mode == userform.ModeUpdate {
		title = "User updated"
	}
	result := ui.NewSuccessResult(title, nil).
		AddDetail("Name", values.Name).
		AddDetail("Email", values.Email)
	if record.HasIdentity() {
		result.AddDetail("ID", record.ID)
	}
	return result
}

// resolveOption picks the single option matching want. An exact label or
// id match wins; otherwise the search must have returned exactly one entry.
func resolveOption(kind, want string, opts []userform.Option) (userform.Option, error) {
	for _, o := range opts {
		if strings.EqualFold(o.Label, want) || o.Value == want {
			return o, nil
		}
	}
	switch len(opts) {
	case 0:
		return userform.Option{}, fmt.Errorf("no %s matches %q", kind, want)
	case 1:
		return opts[0], nil
	}

	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, o.Label)
	}
	return userform.Option{}, fmt.Errorf("%q matches %d of %s: %s", want, len(opts), kind+" entries", strings.Join(labels, ", "))
}

// searchText turns an id-looking argument into an empty search so that the
// id can be matched against the full list.
func searchText(want string) string {
	if isObjectID(want) {
		return ""
	}
	return want
}

func isObjectID(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := strconv.ParseUint(s[:12], 16, 64)
	if err != nil {
		return false
	}
	_, err = strconv.ParseUint(s[12:], 16, 64)
	return err == nil
}

// printNotifier writes form notifications as status lines.
type printNotifier struct {
	out io.Writer
}

func (p *printNotifier) Notify(n userform.Notification) {
	marker := ui.SuccessMarker
	style := ui.StepCompleteStyle
	switch n.Kind {
	case userform.KindError:
		marker, style = ui.FailureMarker, ui.ErrorMessageStyle
	case userform.KindWarning:
		marker, style = ui.WarningMarker, ui.StepRunningStyle
	}

	text := n.Description
	if n.Title != "" {
		text = n.Title
		if n.Description != "" {
			text += ": " + n.Description
		}
	}
	fmt.Fprintln(p.out, style.Render(marker+" "+text))
}

// commandFailure prints a failure box with a troubleshooting hint and
// returns err for cobra.
func commandFailure(title string, err error) error {
	fmt.Println(ui.RenderFailure(title, errors.New(backend.GetShortErrorMessage(err)), hintTips(backend.GetTroubleshootingHint(err))))
	return err
}

// hintTips splits a troubleshooting hint into bullet points, dropping its
// own "Troubleshooting:" heading.
func hintTips(hint string) []string {
	var tips []string
	for _, line := range strings.Split(hint, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + p[1:]
		}
	}
	return p
}
