package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ramp/ramp-mcp-server/internal/etl"
	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/ramp"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/store"
)

// toResponse maps an error from the lower layers onto a JSON-RPC error.
func toResponse(tool string, err error) *protocol.ResponseError {
	data := &protocol.ErrorData{Tool: tool}
	rerr := &protocol.ResponseError{Code: protocol.CodeInternal, Message: err.Error(), Data: data}

	var (
		sde *etl.ScopeDeniedError
		fe  *etl.FilterError
		qe  *store.QueryError
		le  *etl.LoadError
	)
	switch {
	case errors.As(err, &sde):
		rerr.Code, data.Kind, data.Resource = protocol.CodeScopeDenied, "scope_denied", sde.Resource
	case errors.As(err, &fe):
		rerr.Code, data.Kind, data.Resource = protocol.CodeInvalidParams, "invalid_arguments", fe.Resource
	case errors.Is(err, resource.ErrUnknownResource):
		rerr.Code, data.Kind = protocol.CodeInvalidParams, "invalid_arguments"
		rerr.Message = fmt.Sprintf("%v; known resources: %v", err, resource.Names())
	case errors.As(err, &qe):
		rerr.Code, data.Kind, data.SQL = protocol.CodeQuery, "query", qe.SQL
	case errors.As(err, &le):
		data.Resource, data.Page = le.Resource, le.Page
		rerr.Code, data.Kind = protocol.CodeUpstream, upstreamKind(le.Err)
		if data.Kind == "cancelled" {
			rerr.Code = protocol.CodeInternal
		}
		rerr.Message = fmt.Sprintf("%v (rows loaded before the failure stay in table %s)", err, le.Resource)
		if hint := scopeHint(le); hint != "" {
			rerr.Message += "; " + hint
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		data.Kind = "cancelled"
	default:
		data.Kind = "internal"
	}
	return rerr
}

// scopeHint names the scopes a resource needs when Ramp refused the token.
func scopeHint(le *etl.LoadError) string {
	var ae *ramp.AuthError
	if !errors.As(le.Err, &ae) || ae.Status != http.StatusForbidden {
		return ""
	}
	d, err := resource.Lookup(le.Resource)
	if err != nil || len(d.Scopes) == 0 {
		return ""
	}
	return fmt.Sprintf("%s requires scope %s; check that the token or client was granted it", le.Resource, strings.Join(d.Scopes, ", "))
}

func upstreamKind(err error) string {
	var (
		ae  *ramp.AuthError
		rle *ramp.RateLimitError
		te  *ramp.TransientError
		ce  *ramp.ClientError
	)
	switch {
	case errors.As(err, &ae):
		return "auth"
	case errors.As(err, &rle):
		return "rate_limited"
	case errors.As(err, &ce):
		return "client"
	case errors.Is(err, ramp.ErrPageLimit):
		return "page_limit"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &te):
		return "transient"
	}
	return "upstream"
}

func invalidArgs(tool, msg string) *protocol.ResponseError {
	return &protocol.ResponseError{
		Code:    protocol.CodeInvalidParams,
		Message: msg,
		Data:    &protocol.ErrorData{Kind: "invalid_arguments", Tool: tool},
	}
}
