package sftpsink

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/protocol"
)

type fakeClient struct {
	wrotePath string
}

func (c *fakeClient) Connect(context.Context) error { return nil }
func (c *fakeClient) List(context.Context, string, bool, string) (<-chan protocol.ListResult, error) {
	return nil, nil
}
func (c *fakeClient) GetInfo(context.Context, string) (protocol.RemoteFileInfo, error) {
	return protocol.RemoteFileInfo{}, nil
}
func (c *fakeClient) OpenRead(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (c *fakeClient) Delete(context.Context, string) error                    { return nil }
func (c *fakeClient) Write(_ context.Context, path string, r io.Reader, _ protocol.WriteOptions) (int64, error) {
	b, err := io.ReadAll(r)
	c.wrotePath = path
	return int64(len(b)), err
}
func (c *fakeClient) Close() error { return nil }

func TestWrite_JoinsRelativeTargetUnderRemoteRoot(t *testing.T) {
	client := &fakeClient{}
	s := New("remote-archive", client, "/incoming")

	plan := domain.DestinationPlan{TargetPath: "orders/a.csv"}
	result, err := s.Write(context.Background(), strings.NewReader("hello"), 5, plan, "a.csv")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if client.wrotePath != "/incoming/orders/a.csv" {
		t.Fatalf("got path %q", client.wrotePath)
	}
	if result.Type != "sftp" || !result.Success {
		t.Fatalf("got result %+v", result)
	}
}

func TestWrite_AbsoluteTargetPathIsNotJoined(t *testing.T) {
	client := &fakeClient{}
	s := New("remote-archive", client, "/incoming")

	plan := domain.DestinationPlan{TargetPath: "/elsewhere/c.csv"}
	_, err := s.Write(context.Background(), strings.NewReader("x"), 1, plan, "c.csv")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if client.wrotePath != "/elsewhere/c.csv" {
		t.Fatalf("got path %q", client.wrotePath)
	}
}
