package consumer_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replicate/pload/pkg/consumer"
)

func TestNullWriter_Consume(t *testing.T) {
	r := require.New(t)
	buf := generateTestContent(kB)
	reader := bytes.NewReader(buf)

	nullConsumer := consumer.NullWriter{}
	r.NoError(nullConsumer.Consume(reader, "", kB))

	_, _ = reader.Seek(0, 0)
	r.Error(nullConsumer.Consume(reader, "", kB-100))

	_, _ = reader.Seek(0, 0)
	r.NoError(nullConsumer.Consume(reader, "", -1))
}

func TestStdoutConsumer_Consume(t *testing.T) {
	r := require.New(t)
	var out bytes.Buffer
	c := consumer.StdoutConsumer{Out: &out}

	r.NoError(c.Consume(bytes.NewReader([]byte("hello")), "ignored", 5))
	r.Equal("hello", out.String())
	r.Error(c.Consume(bytes.NewReader([]byte("hello")), "ignored", 4))
}
