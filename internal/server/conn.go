package server

import (
	"errors"
	"io"
	"time"

	"github.com/redistill/redistill/internal/proto"
)

// readChunkSize is the size of each read(2) into the parser's refill buffer.
const readChunkSize = 4096

// HandleConnection runs the per-connection loop: parse, execute, conditional
// flush. It owns stream, parser and writer buffers exclusively for the
// lifetime of the connection and decrements ActiveConnections exactly once
// on exit, regardless of how the loop ends.
func HandleConnection(stream Stream, exec *Executor, bufferSizeHint, batchSize int, noDelay bool) {
	defer func() {
		exec.counters.ActiveConnections.Add(-1)
		_ = stream.Close()
	}()

	_ = stream.SetNoDelay(noDelay)

	parser := proto.NewParser(bufferSizeHint)
	writer := proto.NewWriter(bufferSizeHint)
	state := NewConnectionState(exec.PasswordConfigured())

	readBuf := make([]byte, readChunkSize)
	batchCount := 0

	for {
		argv, ok, err := parser.Next()
		if err != nil {
			flushBestEffort(stream, writer)
			return
		}
		if !ok {
			n, readErr := stream.Read(readBuf)
			if n > 0 {
				parser.Feed(readBuf[:n])
			}
			if readErr != nil {
				flushBestEffort(stream, writer)
				return
			}
			continue
		}

		exec.Execute(argv, state, time.Now().Unix(), writer)
		batchCount++

		if writer.ShouldFlush() || batchCount >= batchSize || !parser.HasBuffered() {
			if _, err := stream.Write(writer.Bytes()); err != nil {
				return
			}
			writer.Reset()
			batchCount = 0
		}
	}
}

// flushBestEffort writes whatever the writer holds and swallows the error:
// the connection is being torn down regardless (parse error or EOF).
func flushBestEffort(stream Stream, writer *proto.Writer) {
	if len(writer.Bytes()) == 0 {
		return
	}
	_, _ = stream.Write(writer.Bytes())
}

// isEOF reports whether err represents a clean stream close, used by
// callers that want to distinguish EOF from a genuine I/O error for
// logging purposes only (the handler itself treats both the same way).
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
