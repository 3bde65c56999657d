package dispatcher

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/raywall/psn-session-emulator/pkg/webapi"
)

// ParamMapping mapeia um parâmetro da requisição para um campo dos dados do stub.
type ParamMapping struct {
	Name   string `json:"name"`
	MapsTo string `json:"maps_to"`
}

// StubResponse é o status e o corpo devolvidos por um stub.
type StubResponse struct {
	Status int `json:"status"`
	Body   any `json:"body,omitempty"`
}

// StubRoute é uma rota estática ou filtrada por parâmetros, usada para endpoints
// da PSN que o emulador não implementa (amigos, perfis, trophies...).
type StubRoute struct {
	Path              string         `json:"path"`
	Method            string         `json:"method"`
	Response          *StubResponse  `json:"response,omitempty"`
	Data              []any          `json:"data,omitempty"`
	QueryParams       []ParamMapping `json:"query_params,omitempty"`
	PathParams        []ParamMapping `json:"path_params,omitempty"`
	ResponseOnMatch   *StubResponse  `json:"response_on_match,omitempty"`
	ResponseOnNoMatch *StubResponse  `json:"response_on_no_match,omitempty"`
}

// LoadStubs lê a lista de stubs de um arquivo JSON.
func LoadStubs(path string) ([]StubRoute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler arquivo de stubs: %w", err)
	}
	var routes []StubRoute
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("erro ao parsear json de stubs: %w", err)
	}
	for i, r := range routes {
		if r.Path == "" || r.Method == "" {
			return nil, fmt.Errorf("stub %d: path e method são obrigatórios", i)
		}
		for _, resp := range []struct {
			field    string
			value    *StubResponse
			fallback int
		}{
			{"response", r.Response, 200},
			{"response_on_match", r.ResponseOnMatch, 200},
			{"response_on_no_match", r.ResponseOnNoMatch, 404},
		} {
			if err := normalizeStatus(resp.value, resp.fallback); err != nil {
				return nil, fmt.Errorf("stub %d: %s: %w", i, resp.field, err)
			}
		}
	}
	return routes, nil
}

// normalizeStatus aplica o status padrão quando omitido e rejeita valores fora de 100..599.
func normalizeStatus(resp *StubResponse, fallback int) error {
	if resp == nil {
		return nil
	}
	if resp.Status == 0 {
		resp.Status = fallback
		return nil
	}
	if resp.Status < 100 || resp.Status > 599 {
		return fmt.Errorf("status %d inválido", resp.Status)
	}
	return nil
}

// stubHandler responde com o corpo estático ou com os itens de Data que casam com
// todos os parâmetros mapeados. Um único item é devolvido como objeto.
func stubHandler(route StubRoute) webapi.Handler {
	return func(req *webapi.Request) webapi.Reply {
		if route.Response != nil && len(route.Data) == 0 && len(route.QueryParams) == 0 && len(route.PathParams) == 0 {
			return webapi.JSON(route.Response.Status, route.Response.Body)
		}

		params := make(map[string]string)
		for _, p := range route.PathParams {
			if value := req.Var(p.Name); value != "" {
				params[p.MapsTo] = value
			}
		}
		for _, p := range route.QueryParams {
			if value := req.Query.Get(p.Name); value != "" {
				params[p.MapsTo] = value
			}
		}

		var matches []any
		for _, item := range route.Data {
			itemMap, ok := item.(map[string]any)
			if !ok {
				continue
			}
			match := true
			for field, value := range params {
				itemValue, exists := itemMap[field]
				if !exists || !valuesMatch(itemValue, value) {
					match = false
					break
				}
			}
			if match {
				matches = append(matches, item)
			}
		}

		if len(matches) == 0 {
			resp := route.ResponseOnNoMatch
			if resp == nil {
				resp = &StubResponse{Status: 404, Body: webapi.NewErrorBody(0, "Not found")}
			}
			return webapi.JSON(resp.Status, resp.Body)
		}

		status := 200
		if route.ResponseOnMatch != nil {
			status = route.ResponseOnMatch.Status
		}
		if len(matches) == 1 {
			return webapi.JSON(status, matches[0])
		}
		return webapi.JSON(status, matches)
	}
}

func valuesMatch(a any, b string) bool {
	switch v := a.(type) {
	case string:
		return v == b
	case float64:
		f, err := strconv.ParseFloat(b, 64)
		return err == nil && v == f
	case bool:
		return strings.ToLower(b) == strconv.FormatBool(v)
	default:
		return false
	}
}
