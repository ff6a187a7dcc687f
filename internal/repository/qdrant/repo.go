// Package qdrant stores Q&A collections in Qdrant over its gRPC points API.
package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/search/filter"
	"github.com/kailas-cloud/qaindex/internal/domain/search/result"
)

// pointNamespace derives stable point UUIDs from Q&A identifiers.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kailas-cloud/qaindex/points"))

// pointsAPI is the subset of pb.PointsClient the repository calls.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
	CreateFieldIndex(
		ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption,
	) (*pb.PointsOperationResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient the repository calls.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Repo implements the collection capability over Qdrant.
type Repo struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
}

// New dials Qdrant at the given gRPC address.
func New(addr string) (*Repo, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	return &Repo{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// NewWithClients builds a Repo over pre-built clients. Close is a no-op.
func NewWithClients(points pointsAPI, collections collectionsAPI) *Repo {
	return &Repo{points: points, collections: collections}
}

// Close closes the underlying gRPC connection.
func (r *Repo) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// Ping checks that Qdrant answers.
func (r *Repo) Ping(ctx context.Context) error {
	if _, err := r.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("qdrant ping: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection and its payload indexes when absent.
// An existing collection with a different vector size is an error.
func (r *Repo) EnsureCollection(ctx context.Context, col domcol.Collection) (domcol.Collection, error) {
	name := col.Name()

	list, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() != name {
			continue
		}
		info, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
		if err != nil {
			return domcol.Collection{}, fmt.Errorf("get collection %s: %w", name, err)
		}
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if int(size) != col.VectorDim() {
			return domcol.Collection{}, fmt.Errorf("collection %s has dimension %d, want %d: %w",
				name, size, col.VectorDim(), domain.ErrVectorDimMismatch)
		}
		return col, nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(col.VectorDim()),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection %s: %w", name, err)
	}

	if err := r.createPayloadIndexes(ctx, name); err != nil {
		return domcol.Collection{}, err
	}
	return col, nil
}

func (r *Repo) createPayloadIndexes(ctx context.Context, name string) error {
	wait := true
	indexes := make(map[string]pb.FieldType, len(filterableFields))
	for _, k := range filterableFields {
		indexes[k] = pb.FieldType_FieldTypeKeyword
	}
	for _, k := range qa.FlagKeys {
		indexes[k] = pb.FieldType_FieldTypeBool
	}

	keys := make([]string, 0, len(indexes))
	for k := range indexes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ft := indexes[k]
		_, err := r.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: name,
			Wait:           &wait,
			FieldName:      k,
			FieldType:      &ft,
		})
		if err != nil {
			return fmt.Errorf("create payload index %s: %w", k, err)
		}
	}
	return nil
}

// DeleteAll removes every point of the collection.
func (r *Repo) DeleteAll(ctx context.Context, col domcol.Collection) (domcol.ClearOutcome, error) {
	n, err := r.Count(ctx, col)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return domcol.NotFound, nil
	}

	wait := true
	_, err = r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: col.Name(),
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: &pb.Filter{}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("delete points: %w", err)
	}
	return domcol.Cleared, nil
}

// Upsert stores points in one call. Every vector must match the collection
// dimension; nothing is written otherwise.
func (r *Repo) Upsert(ctx context.Context, col domcol.Collection, points []qa.Point) error {
	if len(points) == 0 {
		return nil
	}

	out := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		if len(p.Vector) != col.VectorDim() {
			return fmt.Errorf("point %s has dimension %d, want %d: %w",
				p.ID, len(p.Vector), col.VectorDim(), domain.ErrVectorDimMismatch)
		}
		out[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(p.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: toPayload(p.Document),
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: col.Name(),
		Wait:           &wait,
		Points:         out,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Count returns the exact number of points.
func (r *Repo) Count(ctx context.Context, col domcol.Collection) (int, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{CollectionName: col.Name(), Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Query returns up to k nearest points ordered by ascending cosine distance.
func (r *Repo) Query(
	ctx context.Context, col domcol.Collection, vector []float32, k int, f filter.Expression,
) ([]result.Match, error) {
	if len(vector) != col.VectorDim() {
		return nil, fmt.Errorf("query vector has dimension %d, want %d: %w",
			len(vector), col.VectorDim(), domain.ErrVectorDimMismatch)
	}

	req := &pb.SearchPoints{
		CollectionName: col.Name(),
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		Filter:         toFilter(f),
	}

	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	matches := make([]result.Match, 0, len(resp.GetResult()))
	for _, sp := range resp.GetResult() {
		doc := fromPayload(sp.GetPayload())
		matches = append(matches, result.Match{
			ID:       doc.ID,
			Document: doc.Text,
			Metadata: doc.Metadata,
			Distance: 1 - float64(sp.GetScore()),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return matches, nil
}

// Sample returns metadata of up to limit points in unspecified order.
func (r *Repo) Sample(ctx context.Context, col domcol.Collection, limit int) ([]qa.Metadata, error) {
	if limit <= 0 {
		return []qa.Metadata{}, nil
	}
	lim := uint32(limit) //nolint:gosec // bounded by stats sample size
	resp, err := r.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: col.Name(),
		Limit:          &lim,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("scroll points: %w", err)
	}

	out := make([]qa.Metadata, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		out = append(out, fromPayload(p.GetPayload()).Metadata)
	}
	return out, nil
}

// PointID maps a Q&A identifier to its Qdrant point UUID (v5).
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}
