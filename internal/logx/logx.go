package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/schema"
)

type contextKey int

const (
	documentKey contextKey = iota
	pipelineKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// Or returns log, or the context-free default logger when log is nil.
func Or(log pslog.Logger) pslog.Logger {
	if log != nil {
		return log
	}
	return pslog.Ctx(context.Background())
}

// WithDocument annotates the logger with the document id unless the context
// already carries the same marker.
func WithDocument(ctx context.Context, doc schema.DocumentID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if current, ok := ctx.Value(documentKey).(schema.DocumentID); ok && current == doc {
		return log
	}
	return log.With("document", doc.String())
}

// WithDocumentPipeline annotates the logger with document and pipeline identifiers.
func WithDocumentPipeline(ctx context.Context, doc schema.DocumentID, pipeline schema.PipelineID) pslog.Logger {
	log := WithDocument(ctx, doc)
	if !pipeline.Valid() {
		return log
	}
	if current, ok := ctx.Value(pipelineKey).(schema.PipelineID); ok && current == pipeline {
		return log
	}
	return log.With("pipeline", pipeline.String())
}

// WithPipeline annotates the logger with a pipeline id when it is valid.
func WithPipeline(log pslog.Logger, pipeline schema.PipelineID) pslog.Logger {
	if pipeline.Valid() {
		log = log.With("pipeline", pipeline.String())
	}
	return log
}

// WithBrowser annotates the logger with a top-level browsing context when known.
func WithBrowser(log pslog.Logger, browser *schema.TopLevelBrowsingContextID) pslog.Logger {
	if browser != nil {
		log = log.With("browser", browser.String())
	}
	return log
}

// ContextWithDocument stores the document marker on the context for log de-duplication.
func ContextWithDocument(ctx context.Context, doc schema.DocumentID) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, documentKey, doc)
}

// ContextWithPipeline stores the pipeline marker on the context for log de-duplication.
func ContextWithPipeline(ctx context.Context, pipeline schema.PipelineID) context.Context {
	if ctx == nil || !pipeline.Valid() {
		return ctx
	}
	return context.WithValue(ctx, pipelineKey, pipeline)
}

// ContextWithDocumentLogger attaches the logger and document marker to the context.
func ContextWithDocumentLogger(ctx context.Context, log pslog.Logger, doc schema.DocumentID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithDocument(ctx, doc)
}

// CopyContextFields copies document/pipeline markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if doc, ok := src.Value(documentKey).(schema.DocumentID); ok {
		dst = ContextWithDocument(dst, doc)
	}
	if pipeline, ok := src.Value(pipelineKey).(schema.PipelineID); ok {
		dst = ContextWithPipeline(dst, pipeline)
	}
	return dst
}
