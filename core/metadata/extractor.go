// Package metadata extracts structured tags from raw audio buffers. It is
// pure: no I/O beyond reading the supplied buffer.
package metadata

import (
	"bytes"
	"strings"

	"Playly/logger"
	"Playly/model"

	"github.com/dhowden/tag"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// Tags is the extraction result. Fields absent from the file carry the
// catalog sentinel defaults; Duration is 0 when it cannot be determined.
type Tags struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Duration float64 // seconds
	Cover    *Cover
}

// Cover is an embedded cover image.
type Cover struct {
	Data     []byte
	MIMEType string
	Ext      string
}

// Extract parses tags from an audio buffer. A buffer whose tag container
// cannot be parsed is not an error: a tagless file is still a valid song,
// so the result simply carries all sentinel defaults.
func Extract(data []byte, mimeType string) Tags {
	tags := Tags{
		Title:  model.UnknownTitle,
		Artist: model.UnknownArtist,
		Album:  model.UnknownAlbum,
		Genre:  model.UnknownGenre,
	}

	md, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		logger.Debug("No parseable tag container in upload",
			logger.String("mimeType", mimeType),
			logger.ErrorField(err),
		)
	} else {
		if v := strings.TrimSpace(md.Title()); v != "" {
			tags.Title = v
		}
		if v := strings.TrimSpace(md.Artist()); v != "" {
			tags.Artist = v
		}
		if v := strings.TrimSpace(md.Album()); v != "" {
			tags.Album = v
		}
		if v := strings.TrimSpace(md.Genre()); v != "" {
			tags.Genre = v
		}
		if pic := md.Picture(); pic != nil && len(pic.Data) > 0 {
			tags.Cover = &Cover{
				Data:     pic.Data,
				MIMEType: pic.MIMEType,
				Ext:      coverExt(pic.MIMEType, pic.Ext),
			}
		}
	}

	if mimeType == "audio/mpeg" {
		tags.Duration = mp3Duration(data)
	}

	return tags
}

// mp3Duration decodes the MPEG stream headers to derive the playing time.
// Returns 0 when the stream cannot be decoded.
func mp3Duration(data []byte) float64 {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	// Decoded output is 16-bit stereo PCM: 4 bytes per sample frame.
	samples := decoder.Length() / 4
	if samples <= 0 || decoder.SampleRate() <= 0 {
		return 0
	}
	return float64(samples) / float64(decoder.SampleRate())
}

func coverExt(mimeType, ext string) string {
	if ext != "" {
		if !strings.HasPrefix(ext, ".") {
			return "." + ext
		}
		return ext
	}
	switch mimeType {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
