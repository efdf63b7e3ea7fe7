package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"digitnet/internal/matrix"
)

// WriteMatrix encodes m as text: the row count on the first line, the
// column count on the second, then one value per line in row-major order.
// Values use the shortest representation that parses back exactly.
func WriteMatrix(w io.Writer, m *matrix.Dense) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n", m.Rows(), m.Cols())
	buf := make([]byte, 0, 32)
	for _, v := range m.RawData() {
		buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadMatrix decodes a matrix written by WriteMatrix.
func ReadMatrix(r io.Reader) (*matrix.Dense, error) {
	sc := bufio.NewScanner(r)
	next := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				return line, true
			}
		}
		return "", false
	}

	dims := [2]int{}
	for i, name := range []string{"rows", "cols"} {
		line, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			return nil, fmt.Errorf("%w: missing %s line", ErrTruncated, name)
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s line %q", ErrMalformed, name, line)
		}
		dims[i] = n
	}

	m, err := matrix.Zeros(dims[0], dims[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	data := m.RawData()
	for i := range data {
		line, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			return nil, fmt.Errorf("%w: %d of %d values", ErrTruncated, i, len(data))
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d %q", ErrMalformed, i, line)
		}
		data[i] = v
	}
	return m, nil
}
