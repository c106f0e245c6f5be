package translator

import "bytes"

// doneEvent is the OpenAI stream terminator.
var doneEvent = []byte("data: [DONE]\n\n")

// lineBuffer reassembles SSE lines from arbitrarily framed byte
// chunks. Push returns every complete line in upstream order with the
// trailing newline and carriage return stripped; a partial tail is
// held until the next chunk.
type lineBuffer struct {
	buf []byte
}

func (b *lineBuffer) Push(chunk []byte) [][]byte {
	b.buf = append(b.buf, chunk...)
	var lines [][]byte
	for {
		idx := bytes.IndexByte(b.buf, '\n')
		if idx < 0 {
			return lines
		}
		line := bytes.TrimRight(b.buf[:idx], "\r")
		lines = append(lines, append([]byte(nil), line...))
		b.buf = b.buf[idx+1:]
	}
}

// dataPayload strips the SSE "data: " prefix, returning nil for any
// other line kind (comments, event names, blanks).
func dataPayload(line []byte) []byte {
	if !bytes.HasPrefix(line, []byte("data: ")) {
		return nil
	}
	return line[len("data: "):]
}

// frameEvent wraps a JSON payload as one SSE event.
func frameEvent(payload []byte) []byte {
	framed := make([]byte, 0, len(payload)+8)
	framed = append(framed, "data: "...)
	framed = append(framed, payload...)
	framed = append(framed, "\n\n"...)
	return framed
}
