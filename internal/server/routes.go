package server

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slac-epics/streamdevice/internal/buffer"
	"github.com/slac-epics/streamdevice/internal/convert"
	"github.com/slac-epics/streamdevice/internal/stream"
)

var ErrInvalidHex = errors.New("server: invalid hex payload")

var codecNames = map[byte]string{
	convert.ExponentialCode: "exponential",
	convert.RawFloatCode:    "raw_float",
	convert.SHDLCCode:       "shdlc",
}

// CodecName names a registered conversion character. Codes outside the
// built-in set are reported as "custom".
func CodecName(code byte) string {
	if name, ok := codecNames[code]; ok {
		return name
	}
	return "custom"
}

type CodecInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type FieldInfo struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Kind   string `json:"kind"`
}

type printRequest struct {
	Format string `json:"format"`
	Value  string `json:"value"`
}

type scanRequest struct {
	Format string `json:"format"`
	Hex    string `json:"hex"`
}

type printResponse struct {
	Field  string `json:"field,omitempty"`
	Hex    string `json:"hex"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

type scanResponse struct {
	Field    string `json:"field,omitempty"`
	Consumed int    `json:"consumed"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/codecs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"codecs": s.listCodecs()})
	})

	r.GET("/fields", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"fields": s.listFields()})
	})

	r.POST("/print", func(c *gin.Context) {
		var req printRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		field, err := s.transcoder.Compile("request", req.Format)
		if err != nil {
			writeError(c, err)
			return
		}
		s.print(c, field, req.Value, "")
	})

	r.POST("/scan", func(c *gin.Context) {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		field, err := s.transcoder.Compile("request", req.Format)
		if err != nil {
			writeError(c, err)
			return
		}
		s.scan(c, field, req.Hex, "")
	})

	r.POST("/fields/:name/print", func(c *gin.Context) {
		var req printRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		field, err := s.fields.Get(c.Param("name"))
		if err != nil {
			writeError(c, err)
			return
		}
		s.print(c, field, req.Value, field.Name)
	})

	r.POST("/fields/:name/scan", func(c *gin.Context) {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		field, err := s.fields.Get(c.Param("name"))
		if err != nil {
			writeError(c, err)
			return
		}
		s.scan(c, field, req.Hex, field.Name)
	})
}

func (s *Server) print(c *gin.Context, field stream.Field, text, name string) {
	v, err := stream.ParseValue(field.ValueKind(), text)
	if err != nil {
		writeError(c, err)
		return
	}
	out := buffer.New()
	if err := s.transcoder.Print(out, field, v); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, printResponse{
		Field:  name,
		Hex:    strings.ToUpper(hex.EncodeToString(out.Bytes())),
		Text:   buffer.Expand(out.Bytes()),
		Length: out.Len(),
	})
}

func (s *Server) scan(c *gin.Context, field stream.Field, payload, name string) {
	in, err := DecodeHex(payload)
	if err != nil {
		writeError(c, err)
		return
	}
	n, v, err := s.transcoder.Scan(in, field)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scanResponse{
		Field:    name,
		Consumed: n,
		Kind:     v.Kind.String(),
		Value:    v.Text(),
	})
}

func (s *Server) listCodecs() []CodecInfo {
	codes := s.transcoder.Registry().Codes()
	out := make([]CodecInfo, 0, len(codes))
	for _, code := range codes {
		out = append(out, CodecInfo{Code: string(rune(code)), Name: CodecName(code)})
	}
	return out
}

func (s *Server) listFields() []FieldInfo {
	names := s.fields.Names()
	out := make([]FieldInfo, 0, len(names))
	for _, name := range names {
		f, err := s.fields.Get(name)
		if err != nil {
			continue
		}
		out = append(out, FieldInfo{Name: name, Format: f.Format.String(), Kind: f.Kind.String()})
	}
	return out
}

// DecodeHex reads hex digits, ignoring white space and ':' separators.
func DecodeHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	out, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.Join(ErrInvalidHex, err)
	}
	return out, nil
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, stream.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, convert.ErrMismatch), errors.Is(err, convert.ErrUnsupported), errors.Is(err, convert.ErrRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, convert.ErrSyntax), errors.Is(err, convert.ErrConfig),
		errors.Is(err, convert.ErrUnknownConversion), errors.Is(err, stream.ErrCoerce),
		errors.Is(err, ErrInvalidHex):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
