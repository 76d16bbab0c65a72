package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordArticleWrite(t *testing.T) {
	before := testutil.ToFloat64(ArticleWritesTotal.WithLabelValues(OpUpdate))
	RecordArticleWrite(OpUpdate)
	RecordArticleWrite(OpUpdate)

	if got := testutil.ToFloat64(ArticleWritesTotal.WithLabelValues(OpUpdate)); got != before+2 {
		t.Errorf("Expected %v update writes, got %v", before+2, got)
	}
}

func TestRecordArticleView(t *testing.T) {
	before := testutil.ToFloat64(ArticleViewsTotal)
	RecordArticleView()

	if got := testutil.ToFloat64(ArticleViewsTotal); got != before+1 {
		t.Errorf("Expected %v views, got %v", before+1, got)
	}
}

func TestUpdateArticlesTotal(t *testing.T) {
	UpdateArticlesTotal(42)
	if got := testutil.ToFloat64(ArticlesTotal); got != 42 {
		t.Errorf("Expected gauge 42, got %v", got)
	}
}
