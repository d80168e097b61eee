// README: User-visible notices raised by the interaction router.
package interaction

import (
	"errors"
	"time"

	"wayfinder/internal/modules/position"
	"wayfinder/internal/modules/routing"
)

type NoticeKind string

const (
	NoticeNoRoute              NoticeKind = "no_route"
	NoticeRoutingUnavailable   NoticeKind = "routing_unavailable"
	NoticeInvalidEndpoint      NoticeKind = "invalid_endpoint"
	NoticeDirectionsIncomplete NoticeKind = "directions_incomplete"
	NoticePermissionDenied     NoticeKind = "permission_denied"
	NoticePositionUnavailable  NoticeKind = "position_unavailable"
	NoticePositionTimeout      NoticeKind = "position_timeout"
	NoticeError                NoticeKind = "error"
)

// Notice is a discrete, dismissible message for the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

var noticeMessages = map[NoticeKind]string{
	NoticeNoRoute:              "No route found between these locations.",
	NoticeRoutingUnavailable:   "Directions are temporarily unavailable. Please try again.",
	NoticeInvalidEndpoint:      "One of the route endpoints is not a valid location.",
	NoticeDirectionsIncomplete: "Choose both a starting point and a destination first.",
	NoticePermissionDenied:     "Location access was denied.",
	NoticePositionUnavailable:  "Your position is currently unavailable.",
	NoticePositionTimeout:      "Timed out while finding your position.",
	NoticeError:                "Something went wrong.",
}

func newNotice(kind NoticeKind) Notice {
	return Notice{Kind: kind, Message: noticeMessages[kind], At: time.Now().UTC()}
}

// noticeFor classifies a routing or positioning error.
func noticeFor(err error) Notice {
	switch {
	case errors.Is(err, routing.ErrNoRouteFound):
		return newNotice(NoticeNoRoute)
	case errors.Is(err, routing.ErrProviderUnavailable):
		return newNotice(NoticeRoutingUnavailable)
	case errors.Is(err, routing.ErrInvalidEndpoint):
		return newNotice(NoticeInvalidEndpoint)
	case errors.Is(err, position.ErrPermissionDenied):
		return newNotice(NoticePermissionDenied)
	case errors.Is(err, position.ErrPositionUnavailable):
		return newNotice(NoticePositionUnavailable)
	case errors.Is(err, position.ErrTimeout):
		return newNotice(NoticePositionTimeout)
	}
	return newNotice(NoticeError)
}
