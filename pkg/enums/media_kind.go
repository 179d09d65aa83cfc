package enums

import "slices"

// MediaKind says where an uploaded photo will be attached.
type MediaKind string

const (
	MediaKindRequirementPhoto MediaKind = "requirement_photo"
	MediaKindUpdatePhoto      MediaKind = "update_photo"
	MediaKindAvatar           MediaKind = "avatar"
)

var mediaKinds = []MediaKind{MediaKindRequirementPhoto, MediaKindUpdatePhoto, MediaKindAvatar}

func (m MediaKind) String() string { return string(m) }

func (m MediaKind) IsValid() bool { return slices.Contains(mediaKinds, m) }

func ParseMediaKind(value string) (MediaKind, error) {
	return parseClosed("media kind", mediaKinds, value)
}
