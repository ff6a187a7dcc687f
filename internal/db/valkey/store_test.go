package valkey

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/qaindex/internal/db"
)

func scanReply(keys ...string) rueidis.RedisResult {
	elems := make([]rueidis.RedisMessage, len(keys))
	for i, k := range keys {
		elems[i] = mock.RedisString(k)
	}
	return mock.Result(mock.RedisArray(mock.RedisInt64(0), mock.RedisArray(elems...)))
}

func TestPing_Delegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	if err := NewStoreForTest(c).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchList_WildcardFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && cmd[3] == "qaindex:qa:*"
		})).
		Return(scanReply("qaindex:qa:b", "qaindex:qa:a", "qaindex:qa:c"))

	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("HGETALL", "qaindex:qa:a"), mock.Match("HGETALL", "qaindex:qa:b")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"category":  mock.RedisString("alpha"),
				"__content": mock.RedisString("hello"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
		})

	s := NewStoreForTest(c)
	result, err := s.SearchList(context.Background(), "qaindex:qa:idx", "*", 0, 2, []string{"category"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("expected total 3, got %d", result.Total)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry (deleted key skipped), got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Key != "qaindex:qa:a" || e.Fields["category"] != "alpha" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if _, ok := e.Fields["__content"]; ok {
		t.Error("expected fields projected to the requested set")
	}
}

func TestSearchList_WildcardOffsetPastEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		Return(scanReply())

	result, err := NewStoreForTest(c).SearchList(context.Background(), "qaindex:qa:idx", "*", 0, 100, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || len(result.Entries) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestSearchList_NonWildcard(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("doc:1"),
			mock.RedisArray(mock.RedisString("f"), mock.RedisString("v")),
		)))

	result, err := NewStoreForTest(c).SearchList(context.Background(), "idx", "@category:{a}", 0, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected total 1, got %d", result.Total)
	}
}

func TestSearchCount_WildcardFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(scanReply("k1", "k2", "k3"))

	count, err := NewStoreForTest(c).SearchCount(context.Background(), "qaindex:qa:idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3, got %d", count)
	}
}

func TestSearchCount_ScanError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := NewStoreForTest(c).SearchCount(context.Background(), "qaindex:qa:idx", "*")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpScan {
		t.Errorf("expected SCAN db.Error, got %v", err)
	}
}

func TestSearchCount_NonWildcard(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(5))))

	count, err := NewStoreForTest(c).SearchCount(context.Background(), "idx", "@category:{a}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5, got %d", count)
	}
}

func TestSearchKNN_Delegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*=>[KNN 2 @vector $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	result, err := NewStoreForTest(c).SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "qaindex:qa:idx", Vector: []float32{1}, K: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}
}

func TestIndexToKeyPrefix(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"qaindex:pcaf_motor_vehicle_qa:idx", "qaindex:pcaf_motor_vehicle_qa:"},
		{"other:index", "other:index:"},
	}
	for _, tc := range tests {
		if got := indexToKeyPrefix(tc.input); got != tc.want {
			t.Errorf("indexToKeyPrefix(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
