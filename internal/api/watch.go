package api

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/tele/internal/bus"
)

const watchBuffer = 256

// topicOf maps a bus event kind to the watch topic it invalidates.
func topicOf(kind string) (string, bool) {
	switch kind {
	case bus.KindStatusChanged:
		return TopicStatus, true
	case bus.KindAuthChanged:
		return TopicAuth, true
	case bus.KindMediaChanged:
		return TopicMedia, true
	case bus.KindSearchChanged:
		return TopicSearch, true
	case bus.KindCollectionsChanged:
		return TopicCandidates, true
	}
	return "", false
}

// Watch sends the current snapshot of every requested topic, then the latest
// snapshot of a topic each time it changes. Events carry no state of their
// own, so a subscriber that loses events on a full buffer still converges.
func (s *Server) Watch(req *WatchRequest, stream grpc.ServerStream) error {
	topics := req.Topics
	if len(topics) == 0 {
		topics = AllTopics
	}
	for _, t := range topics {
		if !slices.Contains(AllTopics, t) {
			return grpcstatus.Errorf(codes.InvalidArgument, "unknown topic %q", t)
		}
	}

	ch, unsub := s.bus.Subscribe("", watchBuffer)
	defer unsub()

	for _, t := range topics {
		if err := stream.SendMsg(s.envelope(t, time.Now())); err != nil {
			return err
		}
	}

	ctx := stream.Context()
	for {
		select {
		case evt := <-ch:
			topic, ok := topicOf(evt.Kind)
			if !ok || !slices.Contains(topics, topic) {
				continue
			}
			if err := stream.SendMsg(s.envelope(topic, evt.Timestamp)); err != nil {
				s.log.Debug("watch send failed", zap.String("topic", topic), zap.Error(err))
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server) envelope(topic string, at time.Time) *Envelope {
	env := &Envelope{
		ID:       uuid.New().String(),
		Topic:    topic,
		AtUnixMs: at.UnixMilli(),
	}
	switch topic {
	case TopicStatus:
		reply := s.statusReply()
		env.Status = &reply
	case TopicAuth:
		snap := s.auth.Snapshot()
		env.Auth = &snap
	case TopicMedia:
		st := s.media.Snapshot()
		env.Media = &st
	case TopicSearch:
		snap := s.search.Snapshot()
		env.Search = &snap
	case TopicCandidates:
		st := s.collections.Snapshot()
		env.Candidates = &st
	}
	return env
}
