package m3u

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/voyagen/guidevault/internal/models"
)

const (
	directiveMarker = "#EXTINF"
	optionMarker    = "#EXTVLCOPT"
	headerMarker    = "#EXTM3U"
)

var (
	reAttr          = regexp.MustCompile(`([a-zA-Z0-9\-]+?)="([^"]*)"`)
	reHTTPOrigin    = regexp.MustCompile(`http-origin=(.+)`)
	reHTTPReferrer  = regexp.MustCompile(`http-referrer=(.+)`)
	reHTTPUserAgent = regexp.MustCompile(`http-user-agent=(.+)`)
)

// Options controls how directive attributes map onto a Channel.
type Options struct {
	// PreferTvgName uses tvg-name over the display name after the comma.
	PreferTvgName bool
	// StableIDs derives a missing tvg-id from name and URL instead of a random id,
	// so re-importing the same text yields the same ids.
	StableIDs bool
	// NewID generates fallback ids; uuid.NewString when nil.
	NewID func() string
}

// Playlist is the result of ParsePlaylist.
type Playlist struct {
	Channels  []models.Channel
	GuideURLs []string // url-tvg / x-tvg-url from the #EXTM3U header
}

// Parse reads an M3U playlist and returns one channel per well-formed #EXTINF line.
func Parse(r io.Reader, opts Options) ([]models.Channel, error) {
	pl, err := ParsePlaylist(r, opts)
	if err != nil {
		return nil, err
	}
	return pl.Channels, nil
}

// ParsePlaylist is Parse plus the guide URLs advertised in the playlist header.
func ParsePlaylist(r io.Reader, opts Options) (*Playlist, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	pl := &Playlist{Channels: make([]models.Channel, 0)}
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case hasMarker(line, headerMarker):
			pl.GuideURLs = append(pl.GuideURLs, guideURLs(line)...)
		case hasMarker(line, directiveMarker):
			ch, ok := parseEntry(line, lines[i+1:], opts)
			if !ok {
				// Malformed directive (no display-name comma).
				continue
			}
			pl.Channels = append(pl.Channels, ch)
		}
	}
	return pl, nil
}

// maxLineBytes bounds one playlist line. Longer lines are skipped.
const maxLineBytes = 1 << 20

func readLines(r io.Reader) ([]string, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var (
		lines []string
		line  []byte
		skip  bool
	)
	for {
		chunk, more, err := br.ReadLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("m3u: read: %w", err)
		}
		if !skip {
			if len(line)+len(chunk) > maxLineBytes {
				skip, line = true, line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if more {
			continue
		}
		if !skip {
			lines = append(lines, string(line))
		}
		line, skip = line[:0], false
	}
}

// parseEntry builds a channel from a directive line and the lines that follow it.
func parseEntry(line string, rest []string, opts Options) (models.Channel, bool) {
	colon := strings.Index(line, ":")
	comma := strings.Index(line, ",")
	if colon < 0 || comma < 0 || comma < colon {
		return models.Channel{}, false
	}
	attrs := parseAttrs(line[colon+1 : comma])
	displayName := strings.TrimSpace(line[comma+1:])

	url, headers := lookAhead(rest)

	name := displayName
	if (opts.PreferTvgName || name == "") && attrs["tvg-name"] != "" {
		name = attrs["tvg-name"]
	}
	if name == "" {
		name = "Unknown"
	}

	id := attrs["tvg-id"]
	if id == "" {
		if opts.StableIDs {
			id = contentID(name, url)
		} else {
			id = opts.NewID()
		}
	}

	category := attrs["group-title"]
	if category == "" {
		category = models.DefaultCategory
	}

	ch := models.Channel{
		ID:        id,
		Name:      name,
		Logo:      attrs["tvg-logo"],
		Poster:    attrs["tvg-logo"],
		StreamURL: url,
		Category:  category,
		Live:      true,
		Metadata:  map[string]any{"rawAttrs": attrs},
	}
	if url != "" {
		ch.Sources = []models.StreamSource{{URL: url, MediaType: mediaTypeFromURL(url), Label: "default"}}
	}
	if !headers.Empty() {
		ch.Headers = headers
	}
	return ch, true
}

// lookAhead returns the first non-blank, non-comment line as the stream URL,
// collecting EXTVLCOPT headers on the way. It stops at the next directive.
func lookAhead(rest []string) (string, *models.HTTPHeaders) {
	h := &models.HTTPHeaders{}
	for _, raw := range rest {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case hasMarker(line, directiveMarker):
			return "", h
		case hasMarker(line, optionMarker):
			if s := matchFirst(reHTTPOrigin, line); s != "" {
				h.HTTPOrigin = s
			}
			if s := matchFirst(reHTTPReferrer, line); s != "" {
				h.Referrer = s
			}
			if s := matchFirst(reHTTPUserAgent, line); s != "" {
				h.UserAgent = s
			}
		case strings.HasPrefix(line, "#"):
			continue
		default:
			return line, h
		}
	}
	return "", h
}

func parseAttrs(block string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range reAttr.FindAllStringSubmatch(block, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}

func guideURLs(header string) []string {
	attrs := parseAttrs(header)
	var out []string
	for _, key := range []string{"url-tvg", "x-tvg-url"} {
		for _, u := range strings.Split(attrs[key], ",") {
			if u = strings.TrimSpace(u); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

func hasMarker(line, marker string) bool {
	return strings.HasPrefix(strings.ToUpper(line), marker)
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// contentID produces a short deterministic id for a channel without tvg-id.
func contentID(name, url string) string {
	h := sha256.Sum256([]byte(name + "|" + url))
	return fmt.Sprintf("ch-%x", h[:8])
}

func mediaTypeFromURL(url string) string {
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".m3u8"):
		return models.MediaTypeHLS
	case strings.HasSuffix(lower, ".mpd"):
		return models.MediaTypeDASH
	case strings.HasSuffix(lower, ".mp4"), strings.HasSuffix(lower, ".mkv"):
		return models.MediaTypeMP4
	case strings.HasSuffix(lower, ".ts"):
		return models.MediaTypeTS
	}
	return ""
}
