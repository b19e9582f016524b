package handlers

import "github.com/ngoclaw/upstreamgw/internal/domain/entity"

// classifyHandlerError extracts an ErrorKind and detail message from any
// error ParseRequest/ClassifyFetchedImage/ValidateModel can return, so
// both protocol handlers can render it through their own MapError without
// duplicating the type switch.
func classifyHandlerError(err error) (entity.ErrorKind, string) {
	if ke, ok := err.(*entity.KindError); ok {
		return ke.Kind, ke.Detail
	}
	return entity.ErrUpstream, err.Error()
}
