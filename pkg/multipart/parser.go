// Package multipart lê os corpos multipart/mixed do POST /v1/sessions da PS4.
//
// A PSN identifica cada parte pelo header Content-Description e informa o tamanho
// exato em Content-Length; o parser usa esse tamanho para recortar os bytes, sem
// procurar delimitadores dentro de dados binários.
package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
)

var (
	ErrNotMultipart    = errors.New("content type is not multipart/mixed")
	ErrMissingBoundary = errors.New("multipart boundary is missing")
)

// Part é uma seção nomeada do corpo.
type Part struct {
	Name        string
	ContentType string
	Data        []byte
}

// Parser isola a lógica de recorte do corpo dos handlers.
type Parser interface {
	Parse(body []byte, boundary string) (map[string]Part, error)
}

// PartError indica uma parte estruturalmente inválida (sem tamanho, truncada...).
type PartError struct {
	Part   string
	Reason string
}

func (e *PartError) Error() string {
	return fmt.Sprintf("multipart part '%s': %s", e.Part, e.Reason)
}

// Boundary valida o Content-Type e retorna o boundary declarado.
func Boundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.EqualFold(mediaType, "multipart/mixed") {
		return "", ErrNotMultipart
	}
	b := params["boundary"]
	if b == "" {
		return "", ErrMissingBoundary
	}
	return b, nil
}

// DescriptionParser implementa Parser procurando marcadores Content-Description.
type DescriptionParser struct{}

const descriptionHeader = "content-description:"

func (DescriptionParser) Parse(body []byte, boundary string) (map[string]Part, error) {
	parts := make(map[string]Part)
	lower := lowerASCII(body)
	delimiter := []byte("--" + boundary)

	offset := 0
	for {
		rel := bytes.Index(lower[offset:], []byte(descriptionHeader))
		if rel < 0 {
			break
		}
		marker := offset + rel

		// O bloco de headers vai do último delimitador até a linha em branco.
		blockStart := 0
		if boundary != "" {
			if d := bytes.LastIndex(body[:marker], delimiter); d >= 0 {
				blockStart = d + len(delimiter)
			}
		}
		headerEnd, bodyStart := headersEnd(body, marker)
		if headerEnd < 0 {
			return nil, &PartError{Part: "?", Reason: "headers are not terminated"}
		}

		headers := parseHeaders(body[blockStart:headerEnd])
		name := headers["content-description"]
		if name == "" {
			return nil, &PartError{Part: "?", Reason: "empty Content-Description"}
		}

		data, next, err := slicePart(body, bodyStart, headers, delimiter, name)
		if err != nil {
			return nil, err
		}
		parts[name] = Part{Name: name, ContentType: headers["content-type"], Data: data}
		offset = next
	}
	return parts, nil
}

// lowerASCII troca apenas A-Z, mantendo o tamanho do corpo para que as posições
// encontradas em lower valham também em body.
func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// headersEnd localiza a linha em branco após o marcador, aceitando CRLF ou LF.
func headersEnd(body []byte, from int) (int, int) {
	crlf := bytes.Index(body[from:], []byte("\r\n\r\n"))
	lf := bytes.Index(body[from:], []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return from + crlf, from + crlf + 4
	case lf >= 0:
		return from + lf, from + lf + 2
	default:
		return -1, -1
	}
}

func parseHeaders(block []byte) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimSpace(line)
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return headers
}

// slicePart recorta os dados pelo Content-Length. Sem Content-Length, a parte vai
// até o próximo delimitador (caso do session-request JSON enviado por alguns SDKs).
func slicePart(body []byte, start int, headers map[string]string, delimiter []byte, name string) ([]byte, int, error) {
	if raw, ok := headers["content-length"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, 0, &PartError{Part: name, Reason: "invalid Content-Length"}
		}
		if start+n > len(body) {
			return nil, 0, &PartError{Part: name, Reason: "body is shorter than Content-Length"}
		}
		return body[start : start+n], start + n, nil
	}

	if len(delimiter) <= 2 {
		return nil, 0, &PartError{Part: name, Reason: "missing Content-Length"}
	}
	end := bytes.Index(body[start:], delimiter)
	if end < 0 {
		return nil, 0, &PartError{Part: name, Reason: "missing Content-Length"}
	}
	data := bytes.TrimRight(body[start:start+end], "\r\n")
	return data, start + end, nil
}
