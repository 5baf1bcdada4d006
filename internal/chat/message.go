package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Mode string

const (
	ModeChat    Mode = "chat"
	ModeVisuals Mode = "visuals"
	ModeExcel   Mode = "excel"
)

func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeVisuals:
		return ModeVisuals
	case ModeExcel:
		return ModeExcel
	default:
		return ModeChat
	}
}

type AttachmentKind int

const (
	AttachmentNone AttachmentKind = iota
	AttachmentImages
	AttachmentFile
)

// File is a spreadsheet payload as delivered by the backend: base64
// encoded xlsx bytes plus the suggested download name.
type File struct {
	Name string
	Data string
}

type Message struct {
	ID     int64
	Role   Role
	Text   string
	Images []string
	File   *File
}

func (m Message) Attachment() AttachmentKind {
	switch {
	case m.File != nil:
		return AttachmentFile
	case len(m.Images) > 0:
		return AttachmentImages
	default:
		return AttachmentNone
	}
}

// Reply is the normalized assistant-side payload before it becomes a
// transcript entry.
type Reply struct {
	Text   string
	Images []string
	File   *File
}

func (r Reply) Attachment() AttachmentKind {
	switch {
	case r.File != nil:
		return AttachmentFile
	case len(r.Images) > 0:
		return AttachmentImages
	default:
		return AttachmentNone
	}
}
