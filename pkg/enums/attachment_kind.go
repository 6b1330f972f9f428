package enums

// AttachmentKind classifies a chat message attachment.
type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "image"
	AttachmentKindFile  AttachmentKind = "file"
)

// IsValid reports whether the value is a known AttachmentKind.
func (a AttachmentKind) IsValid() bool {
	return a == AttachmentKindImage || a == AttachmentKindFile
}
