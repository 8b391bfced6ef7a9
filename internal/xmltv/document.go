package xmltv

import "encoding/xml"

// Document is the XMLTV root element.
type Document struct {
	XMLName           xml.Name    `xml:"tv"`
	SourceInfoURL     string      `xml:"source-info-url,attr,omitempty"`
	SourceInfoName    string      `xml:"source-info-name,attr,omitempty"`
	GeneratorInfoName string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorInfoURL  string      `xml:"generator-info-url,attr,omitempty"`
	Channels          []Channel   `xml:"channel"`
	Programmes        []Programme `xml:"programme"`
}

// Channel is a <channel> declaration.
type Channel struct {
	ID           string `xml:"id,attr"`
	DisplayNames []Text `xml:"display-name"`
	Icons        []Icon `xml:"icon"`
}

// Programme is a <programme> entry.
type Programme struct {
	ID      string `xml:"id,attr"`
	Channel string `xml:"channel,attr"`
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Titles  []Text `xml:"title"`
	Descs   []Text `xml:"desc"`
}

// Text is a localised text node such as <title lang="en">.
type Text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Icon is an <icon src="..."/> element.
type Icon struct {
	Src string `xml:"src,attr"`
}

func firstText(ts []Text) string {
	for _, t := range ts {
		if t.Value != "" {
			return t.Value
		}
	}
	return ""
}
