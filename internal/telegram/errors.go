package telegram

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/gotd/td/tgerr"

	"github.com/matheus3301/tele/internal/remote"
)

var friendly = map[string]string{
	"API_ID_INVALID":           "Invalid API ID or Hash",
	"API_ID_PUBLISHED_FLOOD":   "Invalid API ID or Hash",
	"PHONE_NUMBER_INVALID":     "Invalid phone number",
	"PHONE_NUMBER_BANNED":      "This phone number is banned",
	"PHONE_CODE_INVALID":       "Invalid code",
	"PHONE_CODE_EXPIRED":       "Code expired, request a new one",
	"PHONE_CODE_EMPTY":         "Enter the code from Telegram",
	"PASSWORD_HASH_INVALID":    "Wrong password",
	"FLOOD_WAIT":               "Too many attempts, try again later",
	"MESSAGE_DELETE_FORBIDDEN": "You can't delete this message",
	"MESSAGE_ID_INVALID":       "Message not found",
	"PEER_ID_INVALID":          "Chat not found",
	"USERNAME_NOT_OCCUPIED":    "Bot not found",
}

// mapError sorts gotd failures into remote.Error and remote.TransportError.
func mapError(err error) error {
	var (
		remoteErr    *remote.Error
		transportErr *remote.TransportError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &remoteErr), errors.As(err, &transportErr):
		return err
	}

	if rpcErr, ok := tgerr.As(err); ok {
		msg, known := friendly[rpcErr.Type]
		if !known {
			msg = humanize(rpcErr.Type)
		}
		return &remote.Error{Code: rpcErr.Code, Message: msg}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		return &remote.TransportError{Err: err}
	}
	return &remote.Error{Message: err.Error()}
}

// humanize turns an RPC error type such as CHAT_WRITE_FORBIDDEN into
// "Chat write forbidden".
func humanize(typ string) string {
	if typ == "" {
		return ""
	}
	s := strings.ToLower(strings.ReplaceAll(typ, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}
