package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/api"
	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/search"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, api.Method(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

var empty = &emptypb.Empty{}

func (c *Client) Status(ctx context.Context) (*api.StatusReply, error) {
	return invoke[api.StatusReply](ctx, c, "GetStatus", empty)
}

func (c *Client) AuthState(ctx context.Context) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "GetAuthState", empty)
}

func (c *Client) QueryAuth(ctx context.Context) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "QueryAuth", empty)
}

func (c *Client) SubmitCredentials(ctx context.Context, apiID, apiHash string) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "SubmitCredentials", &api.CredentialsRequest{APIID: apiID, APIHash: apiHash})
}

func (c *Client) SubmitPhone(ctx context.Context, phone string) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "SubmitPhone", &api.PhoneRequest{Phone: phone})
}

func (c *Client) SubmitCode(ctx context.Context, code string) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "SubmitCode", &api.CodeRequest{Code: code})
}

func (c *Client) SubmitPassword(ctx context.Context, password string) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "SubmitPassword", &api.PasswordRequest{Password: password})
}

func (c *Client) LogOut(ctx context.Context) (*auth.Snapshot, error) {
	return invoke[auth.Snapshot](ctx, c, "LogOut", empty)
}

func (c *Client) MediaState(ctx context.Context) (*media.State, error) {
	return invoke[media.State](ctx, c, "GetMediaState", empty)
}

func (c *Client) LoadFresh(ctx context.Context, ref model.CollectionRef) (*media.State, error) {
	return invoke[media.State](ctx, c, "LoadFresh", &api.LoadRequest{Collection: ref})
}

func (c *Client) LoadIfNeeded(ctx context.Context) (*media.State, error) {
	return invoke[media.State](ctx, c, "LoadIfNeeded", empty)
}

func (c *Client) LoadMore(ctx context.Context) (*media.State, error) {
	return invoke[media.State](ctx, c, "LoadMore", empty)
}

func (c *Client) Focus(ctx context.Context, itemID int64) error {
	_, err := invoke[emptypb.Empty](ctx, c, "Focus", &api.ItemRequest{ItemID: itemID})
	return err
}

func (c *Client) DeleteItem(ctx context.Context, collectionID, itemID int64) (*media.State, error) {
	return invoke[media.State](ctx, c, "DeleteItem", &api.ItemRequest{CollectionID: collectionID, ItemID: itemID})
}

// ResolveLink asks for a direct playback URL of a loaded video item.
func (c *Client) ResolveLink(ctx context.Context, itemID int64) (string, error) {
	reply, err := invoke[api.LinkReply](ctx, c, "ResolveLink", &api.ItemRequest{ItemID: itemID})
	if err != nil {
		return "", err
	}
	return reply.URL, nil
}

func (c *Client) DismissError(ctx context.Context) (*media.State, error) {
	return invoke[media.State](ctx, c, "DismissError", empty)
}

func (c *Client) SearchState(ctx context.Context) (*search.Snapshot, error) {
	return invoke[search.Snapshot](ctx, c, "GetSearchState", empty)
}

func (c *Client) Search(ctx context.Context, query string) (*search.Snapshot, error) {
	return invoke[search.Snapshot](ctx, c, "Search", &api.SearchRequest{Query: query})
}

func (c *Client) SelectResult(ctx context.Context, result model.SearchResult) (*search.Snapshot, error) {
	return invoke[search.Snapshot](ctx, c, "SelectResult", &api.SelectRequest{Result: result})
}

func (c *Client) ClearSearch(ctx context.Context) (*search.Snapshot, error) {
	return invoke[search.Snapshot](ctx, c, "ClearSearch", empty)
}

func (c *Client) ConsumeFocusFirstResult(ctx context.Context) (bool, error) {
	reply, err := invoke[api.FlagReply](ctx, c, "ConsumeFocusFirstResult", empty)
	if err != nil {
		return false, err
	}
	return reply.Value, nil
}

func (c *Client) ConsumeRefreshMedia(ctx context.Context) (bool, error) {
	reply, err := invoke[api.FlagReply](ctx, c, "ConsumeRefreshMedia", empty)
	if err != nil {
		return false, err
	}
	return reply.Value, nil
}

// Candidates returns the sidebar state, loading it on first use.
func (c *Client) Candidates(ctx context.Context) (*collections.State, error) {
	return invoke[collections.State](ctx, c, "GetCandidates", empty)
}

// RefreshCandidates reloads the candidate collections.
func (c *Client) RefreshCandidates(ctx context.Context) (*collections.State, error) {
	return invoke[collections.State](ctx, c, "ListCandidates", empty)
}

// Watcher receives snapshot envelopes from the daemon.
type Watcher struct {
	stream grpc.ClientStream
}

// Watch opens the snapshot stream for the given topics, or all of them.
// Cancel ctx to close it.
func (c *Client) Watch(ctx context.Context, topics ...string) (*Watcher, error) {
	stream, err := c.conn.NewStream(ctx, api.WatchStreamDesc, api.Method("Watch"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&api.WatchRequest{Topics: topics}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Watcher{stream: stream}, nil
}

// Recv blocks for the next envelope.
func (w *Watcher) Recv() (*api.Envelope, error) {
	env := new(api.Envelope)
	if err := w.stream.RecvMsg(env); err != nil {
		return nil, err
	}
	return env, nil
}
