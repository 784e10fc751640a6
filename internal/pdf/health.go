package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	lpdf "github.com/ledongthuc/pdf"
)

const healthMarker = "resume export health check"

const healthDocument = `<!DOCTYPE html><html><head><meta charset="UTF-8"></head>` +
	`<body><p>` + healthMarker + `</p></body></html>`

// Health 描述一次打印自检的结果。
type Health struct {
	Engine  string        `json:"engine"`
	Pages   int           `json:"pages"`
	Bytes   int           `json:"bytes"`
	Elapsed time.Duration `json:"elapsed_ns"`
	TextOK  bool          `json:"text_ok"`
}

// CheckPrinter 用最小文档走完整打印流程，并解析输出确认页数与文字。
func CheckPrinter(ctx context.Context, printer *Printer) (*Health, error) {
	start := time.Now()
	data, err := printer.Print(ctx, healthDocument)
	if err != nil {
		return nil, err
	}

	pages, text, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	return &Health{
		Engine:  printer.Engine().Name(),
		Pages:   pages,
		Bytes:   len(data),
		Elapsed: time.Since(start),
		TextOK:  bytes.Contains([]byte(text), []byte(healthMarker)),
	}, nil
}

// Inspect 解析 PDF，返回页数与纯文本。
func Inspect(data []byte) (int, string, error) {
	if err := CheckOutput(data); err != nil {
		return 0, "", err
	}
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return reader.NumPage(), "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return reader.NumPage(), "", fmt.Errorf("extract pdf text: %w", err)
	}
	return reader.NumPage(), buf.String(), nil
}
