// Package vectorstore maintains the Qdrant index over episodic memories so
// turn-time recall can score candidates by similarity to the user's input.
package vectorstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Collection holding episodic memory vectors.
const memoriesCollection = "episodic_memories"

// Config holds connection settings for a Qdrant instance.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Index wraps the Qdrant collections and points services for the episodic
// memory collection.
type Index struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// Open dials the Qdrant gRPC endpoint.
func Open(cfg Config) (*Index, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	return &Index{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// Ensure creates the episodic memory collection if it does not exist yet.
func (ix *Index) Ensure(ctx context.Context, dimension uint64) error {
	_, err := ix.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: memoriesCollection})
	if err == nil {
		return nil
	}
	_, err = ix.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: memoriesCollection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", memoriesCollection, err)
	}
	return nil
}

// IndexMemory stores the vector for one episodic memory. The memory record
// itself stays in Postgres; only the ID and a summary payload live here.
func (ix *Index) IndexMemory(ctx context.Context, memoryID string, vector []float32, summary string) error {
	_, err := ix.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: memoriesCollection,
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: memoryID}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
				Payload: map[string]*pb.Value{
					"summary": {Kind: &pb.Value_StringValue{StringValue: summary}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("index memory %s: %w", memoryID, err)
	}
	return nil
}

// SimilarTo returns cosine scores keyed by episodic memory ID for the topK
// nearest memories to the given input vector.
func (ix *Index) SimilarTo(ctx context.Context, vector []float32, topK uint64) (map[string]float64, error) {
	resp, err := ix.points.Search(ctx, &pb.SearchPoints{
		CollectionName: memoriesCollection,
		Vector:         vector,
		Limit:          topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", memoriesCollection, err)
	}
	scores := make(map[string]float64, len(resp.Result))
	for _, r := range resp.Result {
		scores[r.Id.GetUuid()] = float64(r.Score)
	}
	return scores, nil
}

// Close tears down the underlying gRPC connection.
func (ix *Index) Close() error {
	return ix.conn.Close()
}
