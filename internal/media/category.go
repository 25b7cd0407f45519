package media

import (
	"path/filepath"
	"strings"
)

// Category identifies the broad media type of a source file. The zero value
// is CategoryUnknown; such files never enter the pipeline.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryVideo
	CategoryAudio
	CategoryText
	CategoryImage
)

// extensionTable maps lowercase file extensions to their category. Generated
// outputs (.pdf, .md) are deliberately absent so a prior run's artifacts are
// never rediscovered as inputs.
var extensionTable = map[string]Category{
	".mp4":  CategoryVideo,
	".mkv":  CategoryVideo,
	".avi":  CategoryVideo,
	".mov":  CategoryVideo,
	".mp3":  CategoryAudio,
	".wav":  CategoryAudio,
	".m4a":  CategoryAudio,
	".aac":  CategoryAudio,
	".txt":  CategoryText,
	".png":  CategoryImage,
	".jpg":  CategoryImage,
	".jpeg": CategoryImage,
	".gif":  CategoryImage,
	".bmp":  CategoryImage,
	".tiff": CategoryImage,
	".tif":  CategoryImage,
	".webp": CategoryImage,
}

// Classify maps a filename to its media category by extension. The match is
// case-insensitive. The second return is false for unsupported extensions.
func Classify(name string) (Category, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return CategoryUnknown, false
	}
	category, ok := extensionTable[ext]
	return category, ok
}

// Priority returns the processing precedence of the category. Lower values
// outrank higher ones: video beats audio beats text beats image.
func (c Category) Priority() int {
	switch c {
	case CategoryVideo:
		return 1
	case CategoryAudio:
		return 2
	case CategoryText:
		return 3
	case CategoryImage:
		return 4
	default:
		return 99
	}
}

// IsSource reports whether the category can anchor a transcript chain on its
// own. Images only ever contribute to OCR batches.
func (c Category) IsSource() bool {
	switch c {
	case CategoryVideo, CategoryAudio, CategoryText:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	switch c {
	case CategoryVideo:
		return "video"
	case CategoryAudio:
		return "audio"
	case CategoryText:
		return "text"
	case CategoryImage:
		return "image"
	default:
		return "unknown"
	}
}
