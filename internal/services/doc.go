// Package services holds cross-cutting helpers shared by the pipeline
// stages: the error taxonomy used to classify external failures, the
// classified-retry combinator built on top of it, and context annotations
// for structured logging.
package services
