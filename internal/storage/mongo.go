package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"workspace/internal/domain"
)

const defaultMongoDatabase = "workspace"

// boardDoc is the stored shape of a board: one document holding the
// whole board, so a save is a single atomic replace.
type boardDoc struct {
	ID          string              `bson:"_id"`
	Name        string              `bson:"name"`
	Items       []domain.CanvasItem `bson:"items"`
	Connections []domain.Connection `bson:"connections"`
	Viewport    domain.Viewport     `bson:"viewport"`
	ItemCount   int                 `bson:"itemCount"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
}

func (d boardDoc) board() *domain.Board {
	b := &domain.Board{
		ID:          d.ID,
		Name:        d.Name,
		Items:       d.Items,
		Connections: d.Connections,
		Viewport:    d.Viewport,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if b.Items == nil {
		b.Items = []domain.CanvasItem{}
	}
	if b.Connections == nil {
		b.Connections = []domain.Connection{}
	}
	return b
}

// MongoBoardStore implements domain.BoardStore on MongoDB.
type MongoBoardStore struct {
	client *mongo.Client
	boards *mongo.Collection
	state  *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects to uri. The database name is taken from the URI path
// and defaults to "workspace".
func OpenMongo(ctx context.Context, uri string) (*MongoBoardStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoBoardStore(client, mongoDatabaseName(uri)), nil
}

// NewMongoBoardStore uses an existing client.
func NewMongoBoardStore(client *mongo.Client, dbName string) *MongoBoardStore {
	db := client.Database(dbName)
	return &MongoBoardStore{
		client: client,
		boards: db.Collection("boards"),
		state:  db.Collection("app_state"),
		now:    time.Now,
	}
}

// mongoDatabaseName extracts the database from user:pass@host/DB?params.
func mongoDatabaseName(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return defaultMongoDatabase
	}
	name := rest[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}

func (s *MongoBoardStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoBoardStore) LoadCurrentBoard(ctx context.Context) (*domain.Board, error) {
	id, ok, err := s.Setting(ctx, currentBoardSetting)
	if err != nil {
		return nil, fmt.Errorf("read current board: %w", err)
	}
	if ok {
		b, err := s.GetBoard(ctx, id)
		if err == nil || !errors.Is(err, ErrBoardNotFound) {
			return b, err
		}
	}

	var doc boardDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	err = s.boards.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest board: %w", err)
	}
	return doc.board(), nil
}

func (s *MongoBoardStore) SaveBoard(ctx context.Context, id, name string, items []domain.CanvasItem, conns []domain.Connection, vp domain.Viewport) (*domain.Board, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now()
	doc := boardDoc{
		ID:          id,
		Name:        name,
		Items:       items,
		Connections: conns,
		Viewport:    vp,
		ItemCount:   len(items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var existing struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	err := s.boards.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"createdAt": 1})).Decode(&existing)
	switch {
	case err == nil:
		doc.CreatedAt = existing.CreatedAt
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("lookup board: %w", err)
	}

	if _, err := s.boards.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	if err := s.setCurrent(ctx, id); err != nil {
		return nil, err
	}
	return doc.board(), nil
}

func (s *MongoBoardStore) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var doc boardDoc
	err := s.boards.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get board %s: %w", id, ErrBoardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return doc.board(), nil
}

func (s *MongoBoardStore) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"name": 1, "itemCount": 1, "updatedAt": 1})
	cursor, err := s.boards.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.BoardSummary
	for cursor.Next(ctx) {
		var doc boardDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode board: %w", err)
		}
		out = append(out, domain.BoardSummary{ID: doc.ID, Name: doc.Name, ItemCount: doc.ItemCount, UpdatedAt: doc.UpdatedAt})
	}
	return out, cursor.Err()
}

func (s *MongoBoardStore) DeleteBoard(ctx context.Context, id string) error {
	if _, err := s.boards.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if _, err := s.state.DeleteOne(ctx, bson.M{"_id": currentBoardSetting, "value": id}); err != nil {
		return fmt.Errorf("clear current board: %w", err)
	}
	return nil
}

func (s *MongoBoardStore) SetCurrentBoard(ctx context.Context, id string) error {
	n, err := s.boards.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("lookup board: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set current board %s: %w", id, ErrBoardNotFound)
	}
	return s.setCurrent(ctx, id)
}

func (s *MongoBoardStore) setCurrent(ctx context.Context, id string) error {
	if err := s.SetSetting(ctx, currentBoardSetting, id); err != nil {
		return fmt.Errorf("set current board: %w", err)
	}
	return nil
}
