// Package media classifies files into the categories the pipeline understands.
//
// Classification is a pure extension lookup: video, audio, text, and image
// extensions map to their category, everything else is rejected. The category
// ordering (video > audio > text > image) doubles as the conflict-resolution
// priority when several files share a filename stem.
package media
