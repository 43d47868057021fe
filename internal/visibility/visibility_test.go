package visibility

import (
	"testing"

	"benchclub/internal/database"
)

func TestBuildAuthorName(t *testing.T) {
	author := database.User{DisplayName: "Dmitry"}

	open := &database.Build{Author: author}
	if got := BuildAuthorName(open); got != "Dmitry" {
		t.Fatalf("open build author = %q", got)
	}

	hidden := &database.Build{Author: author, IsAnonymous: true}
	if got := BuildAuthorName(hidden); got != AnonymousBuilder {
		t.Fatalf("anonymous build author = %q, want %q", got, AnonymousBuilder)
	}
}

func TestCommentAndRatingNames(t *testing.T) {
	user := database.User{DisplayName: "Olga"}

	comment := &database.BuildComment{Author: user, IsAnonymous: true}
	if got := CommentAuthorName(comment); got != AnonymousMember {
		t.Fatalf("anonymous comment author = %q, want %q", got, AnonymousMember)
	}
	comment.IsAnonymous = false
	if got := CommentAuthorName(comment); got != "Olga" {
		t.Fatalf("comment author = %q", got)
	}

	rating := &database.BuildRating{Reviewer: user, IsAnonymous: true}
	if got := RatingReviewerName(rating); got != AnonymousReviewer {
		t.Fatalf("anonymous reviewer = %q, want %q", got, AnonymousReviewer)
	}
	rating.IsAnonymous = false
	if got := RatingReviewerName(rating); got != "Olga" {
		t.Fatalf("reviewer = %q", got)
	}
}

func TestBenchmarkAuthorNameIndependentOfBuild(t *testing.T) {
	user := database.User{DisplayName: "Ivan"}

	record := &database.BenchmarkResult{User: user, IsAnonymous: true}
	if got := BenchmarkAuthorName(record); got != AnonymousMember {
		t.Fatalf("anonymous benchmark author = %q, want %q", got, AnonymousMember)
	}

	record.IsAnonymous = false
	if got := BenchmarkAuthorName(record); got != "Ivan" {
		t.Fatalf("benchmark author = %q", got)
	}
}

func TestAllowProfileLink(t *testing.T) {
	if AllowProfileLink(&database.Build{IsAnonymous: true}) {
		t.Fatal("anonymous build must not expose a profile link")
	}
	if !AllowProfileLink(&database.Build{}) {
		t.Fatal("open build should expose a profile link")
	}
}
