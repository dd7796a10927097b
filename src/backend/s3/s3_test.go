package s3_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3backend "restic-backup-service/src/backend/s3"
)

const listTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>bucket</Name>
  <Prefix>%s</Prefix>
  <Delimiter>/</Delimiter>
  <MaxKeys>1000</MaxKeys>
  <KeyCount>%d</KeyCount>
  <IsTruncated>%t</IsTruncated>
  %s
  %s
</ListBucketResult>`

func listResponse(prefix string, children []string, next string) string {
	var cps strings.Builder
	for _, c := range children {
		fmt.Fprintf(&cps, "<CommonPrefixes><Prefix>%s%s/</Prefix></CommonPrefixes>", prefix, c)
	}
	token := ""
	if next != "" {
		token = "<NextContinuationToken>" + next + "</NextContinuationToken>"
	}
	return fmt.Sprintf(listTemplate, prefix, len(children), next != "", cps.String(), token)
}

func newBackend(t *testing.T, handler http.HandlerFunc) *s3backend.Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	b, err := s3backend.New(context.Background(), s3backend.Options{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "bucket",
		BasePath:        "/restic/",
	})
	require.NoError(t, err)
	return b
}

func TestList_CommonPrefixes(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Path+"?"+r.URL.Query().Get("prefix"))
		mu.Unlock()
		prefix := r.URL.Query().Get("prefix")
		assert.Equal(t, "/", r.URL.Query().Get("delimiter"))
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, listResponse(prefix, []string{"web01", "db01"}, ""))
	})

	names, err := b.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"db01", "web01"}, names)
	assert.Equal(t, []string{"/bucket?restic/"}, seen)
}

func TestList_Paginates(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		w.Header().Set("Content-Type", "application/xml")
		if r.URL.Query().Get("continuation-token") == "" {
			fmt.Fprint(w, listResponse(prefix, []string{"alice"}, "page2"))
			return
		}
		fmt.Fprint(w, listResponse(prefix, []string{"bob"}, ""))
	})

	names, err := b.List(context.Background(), "web01/user_home")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestList_ErrorWrapsBucket(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
	})

	_, err := b.List(context.Background(), "web01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/restic/web01/")
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := s3backend.New(context.Background(), s3backend.Options{})
	assert.Error(t, err)
}
