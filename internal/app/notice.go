package app

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a transient message shown once on the next render.
type Notice struct {
	Kind    NoticeKind
	Message string
}

func (a *App) flash(kind NoticeKind, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notice = &Notice{Kind: kind, Message: message}
}

// Notify queues a notice raised by a surface, such as an unreadable form.
func (a *App) Notify(kind NoticeKind, message string) {
	a.flash(kind, message)
}
