package release

import (
	"fmt"
	"regexp"
	"strconv"
)

var versionRegex = regexp.MustCompile(`^(v?)(\d+)\.(\d+)\.(\d+)$`)

// Version is a vMAJOR.MINOR.PATCH tag.
type Version struct {
	Prefix string // "v" or ""
	Major  int
	Minor  int
	Patch  int
}

// ParseVersion accepts "v1.2.3" and "1.2.3". Pre-release and build suffixes are rejected.
func ParseVersion(tag string) (Version, bool) {
	m := versionRegex.FindStringSubmatch(tag)
	if m == nil {
		return Version{}, false
	}
	major, err1 := strconv.Atoi(m[2])
	minor, err2 := strconv.Atoi(m[3])
	patch, err3 := strconv.Atoi(m[4])
	if err1 != nil || err2 != nil || err3 != nil {
		return Version{}, false
	}
	return Version{Prefix: m[1], Major: major, Minor: minor, Patch: patch}, true
}

func (v Version) String() string {
	return fmt.Sprintf("%s%d.%d.%d", v.Prefix, v.Major, v.Minor, v.Patch)
}

// NextPatch returns the version with Patch incremented.
func (v Version) NextPatch() Version {
	v.Patch++
	return v
}

// Branch renders format (e.g. "release/v%d.%d.x") with the major and minor numbers.
func (v Version) Branch(format string) string {
	return fmt.Sprintf(format, v.Major, v.Minor)
}
