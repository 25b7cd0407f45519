// Package plan turns stem groups into processing units with deterministic
// artifact names. Naming is the idempotency contract: a unit's artifacts are
// derived only from its prefix, so re-runs always probe the same paths.
package plan

import (
	"path/filepath"
	"strings"

	"lectern/internal/discovery"
	"lectern/internal/media"
)

// Kind identifies how a unit was formed.
type Kind int

const (
	// KindPrimary is a stem group anchored by a non-image source.
	KindPrimary Kind = iota
	// KindAttachedImages is the image chain of a group that also has a
	// primary source. Its prefix carries the _images suffix so the two
	// chains never collide.
	KindAttachedImages
	// KindImageGroup is a stem group whose only sources are images. It keeps
	// the plain stem prefix.
	KindImageGroup
	// KindLooseImages is the per-directory pool of images with no stem
	// partner at all.
	KindLooseImages
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindAttachedImages:
		return "attached-images"
	case KindImageGroup:
		return "image-group"
	case KindLooseImages:
		return "loose-images"
	default:
		return "unknown"
	}
}

// Unit is one resolved unit of work: a source chain or an image batch with a
// target artifact prefix.
type Unit struct {
	Kind     Kind
	Dir      string
	Prefix   string
	Category media.Category
	Source   discovery.File
	Images   []discovery.File
}

// Artifacts lists the output paths the unit's stage sequence produces.
// Existence of each path is the only completion signal.
type Artifacts struct {
	Audio      string
	Transcript string
	Study      string
	Document   string
}

// Artifacts derives the unit's artifact paths from its prefix.
func (u Unit) Artifacts() Artifacts {
	base := filepath.Join(u.Dir, u.Prefix)
	artifacts := Artifacts{
		Transcript: base + ".txt",
		Study:      base + "_study.md",
		Document:   base + ".pdf",
	}
	if u.Category == media.CategoryVideo {
		artifacts.Audio = base + ".mp3"
	}
	return artifacts
}

// Name returns the unit's prefix, which is unique within its directory.
func (u Unit) Name() string {
	return u.Prefix
}

// Resolve partitions a directory's stem groups into processing units in
// pass order: primary chains first (each immediately followed by its attached
// image chain), then multi-member image-only groups, then one pooled unit for
// the directory's loose images. The returned slice preserves that order.
func Resolve(dir string, groups []discovery.Group) []Unit {
	var primaries []Unit
	var imageGroups []Unit
	var loose []discovery.File

	for _, group := range groups {
		if source, ok := group.Primary(); ok && !isOwnTranscript(group, source) {
			primaries = append(primaries, Unit{
				Kind:     KindPrimary,
				Dir:      dir,
				Prefix:   group.Stem,
				Category: source.Category,
				Source:   source,
			})
			if images := group.Images(); len(images) > 0 {
				primaries = append(primaries, Unit{
					Kind:     KindAttachedImages,
					Dir:      dir,
					Prefix:   group.Stem + "_images",
					Category: media.CategoryImage,
					Images:   images,
				})
			}
			continue
		}

		images := group.Images()
		if len(images) >= 2 || anchoredByTranscript(group) {
			imageGroups = append(imageGroups, Unit{
				Kind:     KindImageGroup,
				Dir:      dir,
				Prefix:   group.Stem,
				Category: media.CategoryImage,
				Images:   images,
			})
			continue
		}
		loose = append(loose, images...)
	}

	units := append(primaries, imageGroups...)
	if len(loose) > 0 {
		units = append(units, Unit{
			Kind:     KindLooseImages,
			Dir:      dir,
			Prefix:   filepath.Base(dir) + "_images",
			Category: media.CategoryImage,
			Images:   loose,
		})
	}
	return units
}

// isOwnTranscript reports whether source is a text file sitting at exactly
// the transcript path an image unit for this group writes ({stem}.txt). A
// group of images plus that file is a previously processed image unit, not a
// text source with attached images; keeping it an image unit lets every stage
// skip on artifact presence instead of spawning a fresh _images chain.
func isOwnTranscript(group discovery.Group, source discovery.File) bool {
	return source.Category == media.CategoryText &&
		len(group.Images()) > 0 &&
		strings.EqualFold(source.Name, group.Stem+".txt")
}

// anchoredByTranscript reports whether the group carries its own transcript
// artifact. Such a group stays on the plain stem prefix even with a single
// image, since its artifacts already live under that name.
func anchoredByTranscript(group discovery.Group) bool {
	source, ok := group.Primary()
	return ok && isOwnTranscript(group, source)
}
