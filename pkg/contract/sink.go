package contract

import "io"

// SinkKind 区分错误输出目的地。
type SinkKind int

const (
	SinkSuppressed SinkKind = iota
	SinkStream
	SinkTemplate
)

// ErrorSink: ToStream(w) | ToTemplate(template, output) | Suppressed。
type ErrorSink struct {
	Kind     SinkKind
	Stream   io.Writer
	Template string
	Output   string
}

// ToStream 逐行写出 "Error in <loc>: <msg>"。
func ToStream(w io.Writer) ErrorSink {
	if w == nil {
		return Suppressed()
	}
	return ErrorSink{Kind: SinkStream, Stream: w}
}

// ToTemplate 以模板渲染错误报告并写到 destDir/output。
func ToTemplate(template, output string) ErrorSink {
	return ErrorSink{Kind: SinkTemplate, Template: template, Output: output}
}

// Suppressed 不输出错误。
func Suppressed() ErrorSink { return ErrorSink{Kind: SinkSuppressed} }
