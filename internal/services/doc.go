// Package services defines the classified error taxonomy shared by pipeline
// stages and the context annotations that tie log lines and errors back to a
// lecture, stage, and correlated request.
package services
