package media

import (
	"errors"
	"mime"
	"slices"
	"strings"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

var photoTypes = []string{"image/heic", "image/jpeg", "image/png", "image/webp"}

// Some mobile clients send non-canonical JPEG types.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
}

// uploadPolicy says who may upload a kind and in which formats. A nil roles
// list admits every authenticated role.
type uploadPolicy struct {
	roles []enums.Role
	types []string
}

var policies = map[enums.MediaKind]uploadPolicy{
	enums.MediaKindRequirementPhoto: {roles: []enums.Role{enums.RoleHomeowner, enums.RoleAdmin}, types: photoTypes},
	enums.MediaKindUpdatePhoto:      {types: photoTypes},
	enums.MediaKindAvatar:           {types: photoTypes},
}

func (p uploadPolicy) permits(role enums.Role) bool {
	return p.roles == nil || slices.Contains(p.roles, role)
}

func (p uploadPolicy) accepts(mimeType string) bool {
	return slices.Contains(p.types, mimeType)
}

func (p uploadPolicy) describeTypes() string {
	return "one of " + strings.Join(p.types, ", ")
}

// normalizeMimeType drops parameters, lowercases and resolves aliases.
func normalizeMimeType(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("is required")
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return "", errors.New("is not a valid media type")
	}
	mediaType = strings.ToLower(mediaType)
	if canonical, ok := mimeAliases[mediaType]; ok {
		mediaType = canonical
	}
	return mediaType, nil
}
