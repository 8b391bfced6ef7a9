package xmltv

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/voyagen/guidevault/internal/models"
	"golang.org/x/net/html/charset"
)

// ErrMalformedDocument is returned when the input is not well-formed XMLTV.
var ErrMalformedDocument = errors.New("malformed xmltv document")

const untitled = "Untitled"

// Decode reads an XMLTV document. Gzip-compressed input is detected and
// unwrapped; non-UTF-8 encodings declared in the prolog are converted.
func Decode(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrMalformedDocument, err)
		}
		defer gz.Close()
		return decode(gz)
	}
	return decode(br)
}

func decode(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	// Trailing garbage after </tv> still makes the document malformed.
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		switch tok.(type) {
		case xml.StartElement, xml.EndElement:
			return nil, fmt.Errorf("%w: content after root element", ErrMalformedDocument)
		}
	}
	return &doc, nil
}

// Parse decodes an XMLTV document into guide channels. Declared channels come
// first in document order, then channels only referenced by programmes.
func Parse(r io.Reader) ([]models.EPGChannel, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Channels(doc), nil
}

// Channels converts a decoded document into guide channels with sorted events.
func Channels(doc *Document) []models.EPGChannel {
	order := make([]string, 0, len(doc.Channels))
	byID := make(map[string]*models.EPGChannel, len(doc.Channels))

	for _, xc := range doc.Channels {
		name := firstText(xc.DisplayNames)
		id := xc.ID
		if id == "" {
			id = name
		}
		if id == "" {
			id = "ch_" + uuid.NewString()[:8]
		}
		if _, dup := byID[id]; dup {
			continue
		}
		if name == "" {
			name = id
		}
		ch := &models.EPGChannel{ID: id, Name: name, Events: []models.EPGEvent{}}
		for _, icon := range xc.Icons {
			if icon.Src != "" {
				ch.Logo = icon.Src
				break
			}
		}
		byID[id] = ch
		order = append(order, id)
	}

	for idx, p := range doc.Programmes {
		if p.Channel == "" {
			continue
		}
		ch, ok := byID[p.Channel]
		if !ok {
			ch = &models.EPGChannel{ID: p.Channel, Name: p.Channel, Events: []models.EPGEvent{}}
			byID[p.Channel] = ch
			order = append(order, p.Channel)
		}
		id := p.ID
		if id == "" {
			id = p.Channel + "-" + strconv.Itoa(idx)
		}
		title := firstText(p.Titles)
		if title == "" {
			title = untitled
		}
		ch.Events = append(ch.Events, models.EPGEvent{
			ID:          id,
			ChannelID:   p.Channel,
			Title:       title,
			Start:       ParseTimestamp(p.Start),
			End:         ParseTimestamp(p.Stop),
			Description: firstText(p.Descs),
		})
	}

	out := make([]models.EPGChannel, 0, len(order))
	for _, id := range order {
		ch := byID[id]
		sort.SliceStable(ch.Events, func(i, j int) bool {
			return ch.Events[i].Start.Before(ch.Events[j].Start)
		})
		out = append(out, *ch)
	}
	return out
}

// Encode writes channels as an XMLTV document, the inverse of Parse.
func Encode(w io.Writer, chs []models.EPGChannel, generator string) error {
	doc := Document{GeneratorInfoName: generator}
	for _, ch := range chs {
		xc := Channel{ID: ch.ID, DisplayNames: []Text{{Value: ch.Name}}}
		if ch.Logo != "" {
			xc.Icons = []Icon{{Src: ch.Logo}}
		}
		doc.Channels = append(doc.Channels, xc)
		for _, ev := range ch.Events {
			p := Programme{
				Channel: ch.ID,
				Start:   FormatTimestamp(ev.Start.UTC()),
				Stop:    FormatTimestamp(ev.End.UTC()),
				Titles:  []Text{{Value: ev.Title}},
			}
			if ev.Description != "" {
				p.Descs = []Text{{Value: ev.Description}}
			}
			doc.Programmes = append(doc.Programmes, p)
		}
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("xmltv encode: %w", err)
	}
	return enc.Flush()
}
