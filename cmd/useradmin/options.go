package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/useradmin/internal/ui"
	"github.com/muurk/useradmin/internal/userform"
)

var uploadCategory string

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Search companies",
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Search roles",
}

func init() {
	companiesCmd.AddCommand(newSearchCmd("company", func(s *session) searchFunc {
		return func(cmd *cobra.Command, text string) []userform.Option {
			return userform.FetchCompanyList(cmd.Context(), s.Client, text)
		}
	}))
	rolesCmd.AddCommand(newSearchCmd("role", func(s *session) searchFunc {
		return func(cmd *cobra.Command, text string) []userform.Option {
			return userform.FetchRoleList(cmd.Context(), s.Client, text)
		}
	}))
	rootCmd.AddCommand(companiesCmd)
	rootCmd.AddCommand(rolesCmd)

	uploadCmd.Flags().StringVar(&uploadCategory, "category", "", "Upload folder (default: profile setting)")
	rootCmd.AddCommand(uploadCmd)
}

type searchFunc func(cmd *cobra.Command, text string) []userform.Option

// newSearchCmd builds "<kind> search [text]", listing the options the form's
// dropdown would offer for text.
func newSearchCmd(kind string, bind func(*session) searchFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "search [text]",
		Short: fmt.Sprintf("Search %s entries by name (case-insensitive)", kind),
		Long: fmt.Sprintf(`List the %s entries whose name contains text, ignoring case, exactly as
the form's %s dropdown would offer them. Without text every entry on the
first page is listed. A failed search lists nothing.`, kind, kind),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			text := ""
			if len(args) == 1 {
				text = args[0]
			}

			opts := bind(s)(cmd, text)
			if len(opts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s matches %q.\n", kind, text)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderOptionsTable(opts))
			return nil
		},
	}
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an avatar image",
	Long: `Upload an image with the same checks as the form's avatar slot: JPEG or
PNG only, under 2MB. Prints the stored file name and its public URL.`,
	Example: `  useradmin upload ~/Pictures/ada.png`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd.Context())
	if err != nil {
		return err
	}
	category := uploadCategory
	if category == "" {
		category = s.Profile.Category()
	}

	file, err := userform.LoadAvatarFile(expandHome(args[0]))
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(cmd.Context())
	defer cancel()

	slot := userform.NewUploader(s.Client, &printNotifier{out: cmd.ErrOrStderr()}, category)
	if err := slot.Upload(ctx, file); err != nil {
		if errors.Is(err, userform.ErrFileRejected) {
			return err
		}
		return commandFailure("Upload failed", err)
	}

	entry := slot.Entry()
	result := ui.NewSuccessResult("Avatar uploaded", nil).
		AddDetail("File", entry.Name).
		AddDetail("URL", s.Client.ImageURL(category, entry.Name))
	fmt.Println(result.String())
	return nil
}
