package enums

// ChannelKind distinguishes group rooms from direct conversations. Direct
// channels derive visibility from their participant list, not from the
// hidden-flag mechanism.
type ChannelKind string

const (
	ChannelKindGroup  ChannelKind = "group"
	ChannelKindDirect ChannelKind = "direct"
)

// String implements fmt.Stringer.
func (c ChannelKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChannelKind.
func (c ChannelKind) IsValid() bool {
	return c == ChannelKindGroup || c == ChannelKindDirect
}
