package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

func extractPlainText(data []byte) (*Result, error) {
	content := decodeText(data)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", appErr.ErrExtractionFailed)
	}
	return &Result{Text: content, Method: MethodText}, nil
}

// extractMarkdown strips markdown structure so chunk boundaries follow
// prose, not syntax. Fenced code blocks keep their raw text.
func extractMarkdown(data []byte) (*Result, error) {
	source := []byte(decodeText(data))
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			var code strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				code.Write(line.Value(source))
			}
			if trimmed := strings.TrimSpace(code.String()); trimmed != "" {
				blocks = append(blocks, trimmed)
			}
		default:
			if txt := nodeText(node, source); txt != "" {
				blocks = append(blocks, txt)
			}
		}
	}
	content := strings.Join(blocks, "\n\n")
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", appErr.ErrExtractionFailed)
	}
	return &Result{Text: content, Method: MethodMarkdown}, nil
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).HardLineBreak() || node.(*ast.Text).SoftLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return strings.ToValidUTF8(string(data), "�")
}
