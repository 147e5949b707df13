package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DebugCounts reports table sizes.
func (h *Handler) DebugCounts(c echo.Context) error {
	counts, err := h.deps.Counter.Counts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, counts)
}

// DebugProvider fetches the provider snapshot without storing anything.
func (h *Handler) DebugProvider(c echo.Context) error {
	snap, err := h.deps.Provider.Fetch(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error":  "provider fetch failed",
			"detail": err.Error(),
		})
	}

	resp := map[string]interface{}{
		"count":               len(snap.Raw),
		"sample_keys":         []string{},
		"first_commence_time": nil,
	}
	if len(snap.Raw) > 0 {
		keys, err := objectKeys(snap.Raw[0])
		if err == nil {
			resp["sample_keys"] = keys
		}
	}
	if len(snap.Events) > 0 {
		resp["first_commence_time"] = snap.Events[0].CommenceTime
	}
	return c.JSON(http.StatusOK, resp)
}

// objectKeys lists a JSON object's top-level keys in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not an object")
	}
	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			break
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
