package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/logger"
	zbxpkg "zte.szuro.net/pkg/zbx"
)

var (
	ndjsonLinesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zte_http_ndjson_lines_total",
			Help: "Total number of NDJSON lines received per endpoint",
		},
		[]string{"endpoint"},
	)

	ndjsonParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zte_http_ndjson_parse_errors_total",
			Help: "Total number of NDJSON parse errors per endpoint",
		},
		[]string{"endpoint"},
	)
)

// HTTPInput accepts history pushed by the Zabbix connector as NDJSON.
type HTTPInput struct {
	baseInput
	mux *http.ServeMux
}

func NewHTTPInput(zteConf config.ZTEConf) (*HTTPInput, error) {
	hi := &HTTPInput{
		baseInput: newBaseInput(zteConf),
		mux:       http.NewServeMux(),
	}
	hi.mux.HandleFunc("/history", hi.handleHistory)
	ndjsonLinesReceived.WithLabelValues(zbxpkg.HISTORY).Add(0)
	ndjsonParseErrors.WithLabelValues(zbxpkg.HISTORY).Add(0)
	return hi, nil
}

// Handler serves POST /history.
func (hi *HTTPInput) Handler() http.Handler {
	return hi.mux
}

func (hi *HTTPInput) IsReady() bool {
	return true // HTTP server is always ready after Start
}

func (hi *HTTPInput) handleHistory(w http.ResponseWriter, r *http.Request) {
	hi.handleNDJSON(w, r, func(line string) {
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var hExport zbxpkg.History
		if err := dec.Decode(&hExport); err != nil {
			logger.Error("Failed to parse history line", slog.Any("error", err))
			ndjsonParseErrors.WithLabelValues(zbxpkg.HISTORY).Inc()
			return
		}
		ndjsonLinesReceived.WithLabelValues(zbxpkg.HISTORY).Inc()
		hi.subject.Funnel <- hExport
	})
}

func decompress(encoding string, body io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(encoding) {
	case "gzip":
		return gzip.NewReader(body)
	case "deflate":
		return zlib.NewReader(body)
	case "zstd", "ztsd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	}
	return nil, errUnsupportedEncoding
}

var errUnsupportedEncoding = errors.New("unsupported content encoding")

// handleNDJSON handles decompression, NDJSON reading, and error responses for HTTPInput
func (hi *HTTPInput) handleNDJSON(w http.ResponseWriter, r *http.Request, handleLine func(string)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var bodyReader io.Reader = r.Body
	if ce := r.Header.Get("Content-Encoding"); ce != "" {
		dr, err := decompress(ce, r.Body)
		if errors.Is(err, errUnsupportedEncoding) {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			logger.Error("Unsupported Content-Encoding", slog.String("encoding", ce))
			return
		}
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			logger.Error("Failed to create decompressing reader", slog.String("encoding", ce), slog.Any("error", err))
			return
		}
		defer dr.Close()
		bodyReader = dr
	}

	reader := bufio.NewReader(bodyReader)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			logger.Error("Error reading request body", slog.Any("error", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			handleLine(string(line))
		}
		if err == io.EOF {
			break
		}
	}
	w.WriteHeader(http.StatusOK)
}
