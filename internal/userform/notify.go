package userform

// Kind is the severity of a Notification.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
	KindWarning
)

// Notification is something the operator should see. Transient ones are
// short status-line messages; the rest are notification cards with a title.
type Notification struct {
	Kind        Kind
	Title       string
	Description string
	Transient   bool
}

// Notifier receives notifications from the form.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Recorder is a Notifier that keeps every notification in order.
type Recorder struct {
	Notifications []Notification
}

// Notify appends n.
func (r *Recorder) Notify(n Notification) {
	r.Notifications = append(r.Notifications, n)
}

// Last returns the most recent notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	if len(r.Notifications) == 0 {
		return Notification{}, false
	}
	return r.Notifications[len(r.Notifications)-1], true
}

// Reset forgets all notifications.
func (r *Recorder) Reset() {
	r.Notifications = nil
}

func transient(kind Kind, text string) Notification {
	return Notification{Kind: kind, Description: text, Transient: true}
}
