// ABOUTME: Renders a summary as a standalone HTML page via goldmark
// ABOUTME: The summary text is treated as Markdown
package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"github.com/harper/datachat/internal/util"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
<h1>%s</h1>
%s</body>
</html>
`

// RenderHTML converts text to a full HTML document
func RenderHTML(title, text string) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(text), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	t := html.EscapeString(title)
	return []byte(fmt.Sprintf(pageTemplate, t, t, body.String())), nil
}

// HTML renders text and writes it to outputPath atomically
func HTML(title, text, outputPath string) error {
	page, err := RenderHTML(title, text)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(outputPath, page, 0644)
}
