package sink

import (
	"context"

	"github.com/isectech/banking-log-generator/domain/entity"
)

// Sink names
const (
	NameFile   = "file"
	NameStdout = "stdout"
	NameKafka  = "kafka"
	NameWriter = "writer"
)

// Sink is an append-only destination for generated records
type Sink interface {
	Write(ctx context.Context, rec entity.Record) error
	Name() string
	Close() error
}
