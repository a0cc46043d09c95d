package llm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var magicMediaTypes = map[string]string{
	"\x89PNG":     "image/png",
	"\xff\xd8\xff": "image/jpeg",
	"GIF8":        "image/gif",
	"RIFF":        "image/webp",
}

var extMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// LoadImage reads an image file and detects its media type from magic bytes,
// falling back to the file extension.
func LoadImage(path string) (Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return Image{MediaType: detectMediaType(path, raw), Data: raw}, nil
}

func detectMediaType(path string, raw []byte) string {
	for magic, mediaType := range magicMediaTypes {
		if bytes.HasPrefix(raw, []byte(magic)) {
			return mediaType
		}
	}
	if mt, ok := extMediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/png"
}
