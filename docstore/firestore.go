package docstore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ Gateway = (*FirestoreGateway)(nil)

// FirestoreGateway stores documents in Cloud Firestore collections.
type FirestoreGateway struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewFirestoreGateway(client *firestore.Client, logger *zap.Logger) *FirestoreGateway {
	return &FirestoreGateway{
		client: client,
		logger: logger,
	}
}

func (g *FirestoreGateway) col(name string) *firestore.CollectionRef {
	return g.client.Collection(name)
}

func (g *FirestoreGateway) Create(ctx context.Context, collection string, doc Document) (string, error) {
	var ref *firestore.DocumentRef
	if doc.ID == "" {
		ref = g.col(collection).NewDoc()
	} else {
		ref = g.col(collection).Doc(doc.ID)
	}

	if _, err := ref.Create(ctx, doc.Data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return "", alreadyExists(collection, ref.ID)
		}
		g.logger.Error("Failed to create document", zap.String("collection", collection), zap.Error(err))
		return "", writeError("create", collection, err)
	}

	return ref.ID, nil
}

func (g *FirestoreGateway) Get(ctx context.Context, collection, id string) (Document, error) {
	if id == "" {
		return Document{}, notFound(collection, id)
	}

	snap, err := g.col(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, notFound(collection, id)
		}
		return Document{}, queryError("get", collection, err)
	}

	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (g *FirestoreGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if id == "" {
		return notFound(collection, id)
	}

	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	if len(updates) == 0 {
		// Update with no fields is rejected by Firestore; still report missing documents.
		_, err := g.Get(ctx, collection, id)
		return err
	}

	if _, err := g.col(collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return notFound(collection, id)
		}
		g.logger.Error("Failed to update document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return writeError("update", collection, err)
	}
	return nil
}

func (g *FirestoreGateway) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return notFound(collection, id)
	}

	if _, err := g.col(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return notFound(collection, id)
		}
		g.logger.Error("Failed to delete document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return writeError("delete", collection, err)
	}
	return nil
}

func (g *FirestoreGateway) Query(ctx context.Context, q Query) (Page, error) {
	dir := firestore.Asc
	if q.Direction == Desc {
		dir = firestore.Desc
	}

	fq := g.col(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	fq = fq.OrderBy(firestore.DocumentID, dir)

	if !q.After.IsZero() {
		value, id, err := q.After.Decode()
		if err != nil {
			return Page{}, err
		}
		if q.OrderBy != "" {
			fq = fq.StartAfter(value, id)
		} else {
			fq = fq.StartAfter(id)
		}
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	it := fq.Documents(ctx)
	defer it.Stop()

	page := Page{Docs: make([]Document, 0)}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			g.logger.Error("Failed to query documents", zap.String("collection", q.Collection), zap.Error(err))
			return Page{}, queryError("query", q.Collection, err)
		}
		page.Docs = append(page.Docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}

	if n := len(page.Docs); n > 0 {
		last := page.Docs[n-1]
		var v any
		if q.OrderBy != "" {
			v = last.Data[q.OrderBy]
		}
		page.LastCursor = NewCursor(v, last.ID)
	}
	return page, nil
}
