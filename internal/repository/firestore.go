package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	slidesCollection     = "slides"
	thumbnailsCollection = "thumbnails"
)

// Firestore keeps one document per presentation. Slides and thumbnails live
// in subcollections keyed by zero-padded slide number.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	if collection == "" {
		collection = "presentations"
	}
	return &Firestore{client: client, collection: collection}
}

func (f *Firestore) doc(id string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(id)
}

func slideDocID(n int) string {
	return fmt.Sprintf("%05d", n)
}

func (f *Firestore) FindByProduct(ctx context.Context, productID string) (*models.PresentationRecord, error) {
	docs, err := f.client.Collection(f.collection).Where("productId", "==", productID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query presentation for product %s: %w", productID, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("presentation for product %s: %w", productID, ErrNotFound)
	}
	var rec models.PresentationRecord
	if err := docs[0].DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode presentation %s: %w", docs[0].Ref.ID, err)
	}
	rec.ID = docs[0].Ref.ID
	return &rec, nil
}

func (f *Firestore) CreatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := f.doc(rec.ID).Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to create presentation document: %w", err)
	}
	return nil
}

func (f *Firestore) UpdatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	ref := f.doc(rec.ID)
	if _, err := ref.Get(ctx); err != nil {
		if isFirestoreNotFound(err) {
			return fmt.Errorf("presentation %s: %w", rec.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to read presentation %s: %w", rec.ID, err)
	}
	if _, err := ref.Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to update presentation document: %w", err)
	}
	return nil
}

func (f *Firestore) DeletePresentation(ctx context.Context, id string) error {
	ref := f.doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if isFirestoreNotFound(err) {
			return fmt.Errorf("presentation %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to read presentation %s: %w", id, err)
	}
	// Subcollections outlive their parent document unless removed explicitly.
	if _, err := f.DeleteSlides(ctx, id); err != nil {
		return err
	}
	if _, err := f.DeleteAssets(ctx, id); err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete presentation document: %w", err)
	}
	return nil
}

func (f *Firestore) ListSlides(ctx context.Context, presentationID string) ([]models.SlideRecord, error) {
	slides := []models.SlideRecord{}
	err := f.each(ctx, presentationID, slidesCollection, func(snap *firestore.DocumentSnapshot) error {
		var rec models.SlideRecord
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("failed to decode slide %s: %w", snap.Ref.ID, err)
		}
		slides = append(slides, rec)
		return nil
	})
	return slides, err
}

func (f *Firestore) ReplaceSlides(ctx context.Context, presentationID string, slides []models.SlideRecord) error {
	docs := make(map[string]any, len(slides))
	for _, s := range slides {
		docs[slideDocID(s.SlideNumber)] = s
	}
	_, err := f.replace(ctx, presentationID, slidesCollection, docs)
	return err
}

func (f *Firestore) DeleteSlides(ctx context.Context, presentationID string) (int, error) {
	return f.replace(ctx, presentationID, slidesCollection, nil)
}

func (f *Firestore) ListAssets(ctx context.Context, presentationID string) ([]models.ThumbnailAsset, error) {
	assets := []models.ThumbnailAsset{}
	err := f.each(ctx, presentationID, thumbnailsCollection, func(snap *firestore.DocumentSnapshot) error {
		var a models.ThumbnailAsset
		if err := snap.DataTo(&a); err != nil {
			return fmt.Errorf("failed to decode thumbnail %s: %w", snap.Ref.ID, err)
		}
		assets = append(assets, a)
		return nil
	})
	return assets, err
}

func (f *Firestore) ReplaceAssets(ctx context.Context, presentationID string, assets []models.ThumbnailAsset) error {
	docs := make(map[string]any, len(assets))
	for _, a := range assets {
		docs[slideDocID(a.SlideNumber)] = a
	}
	_, err := f.replace(ctx, presentationID, thumbnailsCollection, docs)
	return err
}

func (f *Firestore) DeleteAssets(ctx context.Context, presentationID string) (int, error) {
	return f.replace(ctx, presentationID, thumbnailsCollection, nil)
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

// each visits a subcollection in slide order.
func (f *Firestore) each(ctx context.Context, presentationID, sub string, fn func(*firestore.DocumentSnapshot) error) error {
	iter := f.doc(presentationID).Collection(sub).OrderBy("slideNumber", firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to iterate %s for %s: %w", sub, presentationID, err)
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

// replace deletes every document in the subcollection and writes docs in
// their place through one BulkWriter. It returns how many documents were
// deleted.
func (f *Firestore) replace(ctx context.Context, presentationID, sub string, docs map[string]any) (int, error) {
	coll := f.doc(presentationID).Collection(sub)
	refs, err := coll.DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to list %s for %s: %w", sub, presentationID, err)
	}

	bw := f.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	deleted := 0
	for _, ref := range refs {
		if _, keep := docs[ref.ID]; keep {
			continue
		}
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to queue delete of %s: %w", ref.Path, err)
		}
		jobs = append(jobs, job)
		deleted++
	}
	for id, data := range docs {
		job, err := bw.Set(coll.Doc(id), data)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to queue write of %s/%s: %w", sub, id, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return 0, fmt.Errorf("failed to replace %s for %s: %w", sub, presentationID, errors.Join(errs...))
	}
	return deleted, nil
}

func isFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
