package mirror

import (
	"path"
	"strings"
)

// Static extension table for the audio/video/image families. Deliberately
// conservative: unknown extensions classify as ClassOther rather than
// attempting MIME sniffing.
var mediaExtensions = map[string]struct{}{
	// images
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
	".tif": {}, ".tiff": {}, ".webp": {}, ".heic": {}, ".heif": {},
	".raw": {}, ".cr2": {}, ".nef": {}, ".dng": {},
	// video
	".mp4": {}, ".m4v": {}, ".mov": {}, ".avi": {}, ".mkv": {},
	".wmv": {}, ".webm": {}, ".mpg": {}, ".mpeg": {}, ".3gp": {},
	// audio
	".mp3": {}, ".m4a": {}, ".wav": {}, ".flac": {}, ".aac": {},
	".ogg": {}, ".opus": {}, ".wma": {}, ".aiff": {},
}

// ClassifyPath maps a file name to its MediaClass by extension.
func ClassifyPath(p string) MediaClass {
	ext := strings.ToLower(path.Ext(p))
	if _, ok := mediaExtensions[ext]; ok {
		return ClassMedia
	}
	return ClassOther
}
