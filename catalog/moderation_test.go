package catalog_test

import (
	"context"
	"testing"

	"github.com/ivall/sifo/catalog"
	"github.com/ivall/sifo/testutil"
)

func TestListPendingOrdersOldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	first := seedVideo(t, db, "First In", catalog.KindMovie, false)
	second := seedVideo(t, db, "Second In", catalog.KindMovie, false)
	seedVideo(t, db, "Already Live", catalog.KindMovie, true)

	q, err := catalog.ListPending(context.Background(), db)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(q.Videos) != 2 {
		t.Fatalf("expected 2 pending videos, got %d", len(q.Videos))
	}
	if q.Videos[0].ID != first || q.Videos[1].ID != second {
		t.Errorf("expected submission order, got %d then %d", q.Videos[0].ID, q.Videos[1].ID)
	}
}

func TestReviewVideoApproveWithEdits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedCategory(t, db, "comedy", "category")
	id := seedVideo(t, db, "Untitled Submision", catalog.KindMovie, false)

	name := "Untitled Submission"
	desc := "cleaned up by a moderator"
	err := catalog.ReviewVideo(ctx, db, id, catalog.ActionApprove, &catalog.VideoEdits{
		Name:        &name,
		Description: &desc,
		Categories:  []string{"comedy"},
	})
	if err != nil {
		t.Fatalf("ReviewVideo failed: %v", err)
	}

	v, err := catalog.GetVideo(ctx, db, id)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if !v.Approved {
		t.Error("video should be approved")
	}
	if v.Name != name || v.Description != desc {
		t.Errorf("edits not applied: %+v", v)
	}
	if len(v.Categories) != 1 || v.Categories[0].Name != "comedy" {
		t.Errorf("category edits not applied: %+v", v.Categories)
	}
}

func TestReviewVideoRejectDeletesCascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	id := seedVideo(t, db, "Doomed Show", catalog.KindSeries, false)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO episodes (video_id, season, episode, title) VALUES ($1,1,1,'Pilot')`, id); err != nil {
		t.Fatalf("failed to seed episode: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO links (url, service, video_id) VALUES ('https://x.example.com','x',$1)`, id); err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}

	if err := catalog.ReviewVideo(ctx, db, id, catalog.ActionReject, nil); err != nil {
		t.Fatalf("ReviewVideo reject failed: %v", err)
	}

	if _, err := catalog.GetVideo(ctx, db, id); !catalog.IsNotFound(err) {
		t.Errorf("expected video gone, got %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE video_id=$1`, id).Scan(&n); err != nil {
		t.Fatalf("episode count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected episodes deleted with video, found %d", n)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE video_id=$1`, id).Scan(&n); err != nil {
		t.Fatalf("link count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected links deleted with video, found %d", n)
	}
}

func TestReviewVideoUnknownTargets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	if err := catalog.ReviewVideo(ctx, db, 999999, catalog.ActionApprove, nil); !catalog.IsNotFound(err) {
		t.Errorf("expected not found on approve, got %v", err)
	}
	if err := catalog.ReviewVideo(ctx, db, 999999, catalog.ActionReject, nil); !catalog.IsNotFound(err) {
		t.Errorf("expected not found on reject, got %v", err)
	}
	id := seedVideo(t, db, "Pending", catalog.KindMovie, false)
	if err := catalog.ReviewVideo(ctx, db, id, "defer", nil); !catalog.IsValidation(err) {
		t.Errorf("expected validation error for unknown action, got %v", err)
	}
}

func TestReviewLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	movieID := seedVideo(t, db, "A Movie", catalog.KindMovie, true)

	var keep, drop int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO links (url, service, video_id) VALUES ('https://keep.example.com','k',$1) RETURNING id`, movieID).Scan(&keep); err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}
	if err := db.QueryRowContext(ctx, `
		INSERT INTO links (url, service, video_id) VALUES ('https://drop.example.com','d',$1) RETURNING id`, movieID).Scan(&drop); err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}

	quality := "1080p"
	if err := catalog.ReviewLink(ctx, db, keep, catalog.ActionApprove, &catalog.LinkEdits{Quality: &quality}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := catalog.ReviewLink(ctx, db, drop, catalog.ActionReject, nil); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	links, err := catalog.ListApprovedLinks(ctx, db, movieID, nil)
	if err != nil {
		t.Fatalf("ListApprovedLinks failed: %v", err)
	}
	if len(links) != 1 || links[0].ID != keep {
		t.Fatalf("expected only the approved link, got %+v", links)
	}
	if links[0].Quality != "1080p" {
		t.Errorf("approve edits not applied: %+v", links[0])
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE id=$1`, drop).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Error("rejected link should be deleted, not flagged")
	}

	if err := catalog.ReviewLink(ctx, db, 999999, catalog.ActionApprove, nil); !catalog.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

// A failed approval must leave the link exactly as submitted, even when an
// earlier edit field was fine.
func TestReviewLinkFailedApproveKeepsNoEdits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	movieID := seedVideo(t, db, "A Movie", catalog.KindMovie, true)

	var id int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO links (url, service, video_id) VALUES ('https://old.example.com','old',$1) RETURNING id`, movieID).Scan(&id); err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}

	newURL := "https://new.example.com"
	blank := "   "
	err := catalog.ReviewLink(ctx, db, id, catalog.ActionApprove, &catalog.LinkEdits{URL: &newURL, Service: &blank})
	if !catalog.IsValidation(err) {
		t.Fatalf("expected validation error for blank service, got %v", err)
	}

	var url, service string
	var approved bool
	if err := db.QueryRowContext(ctx, `SELECT url, service, approved FROM links WHERE id=$1`, id).Scan(&url, &service, &approved); err != nil {
		t.Fatalf("failed to load link: %v", err)
	}
	if url != "https://old.example.com" || service != "old" {
		t.Errorf("edits from the failed approval leaked: url=%q service=%q", url, service)
	}
	if approved {
		t.Error("link must stay unapproved after a failed approval")
	}
}
