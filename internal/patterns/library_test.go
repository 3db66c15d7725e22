package patterns

import (
	"reflect"
	"testing"
)

func libraryFixture() []PublishedPattern {
	return []PublishedPattern{
		{PublishedID: "p1", Title: "Granny Square Blanket", Author: "Jane", Craft: CraftCrochet, Skill: SkillBeginner},
		{PublishedID: "p2", Title: "Cable Knit Scarf", Author: "Maria", Craft: CraftKnitting, Skill: SkillIntermediate},
		{PublishedID: "p3", Title: "Amigurumi Fox", Author: "Jane", Craft: CraftCrochet, Skill: SkillAdvanced},
	}
}

func publishedIDs(records []PublishedPattern) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.PublishedID)
	}
	return ids
}

func TestFilterLibraryEmptyFilterReturnsEverything(t *testing.T) {
	published := libraryFixture()
	filtered := FilterLibrary(published, LibraryFilter{})
	if len(filtered) != len(published) {
		t.Fatalf("expected %d patterns, got %d", len(published), len(filtered))
	}
}

func TestFilterLibraryMatchesTitleSubstringCaseInsensitively(t *testing.T) {
	filtered := FilterLibrary(libraryFixture(), LibraryFilter{Query: "granny"})
	if got := publishedIDs(filtered); !reflect.DeepEqual(got, []string{"p1"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
}

func TestFilterLibraryMatchesAuthorSubstring(t *testing.T) {
	filtered := FilterLibrary(libraryFixture(), LibraryFilter{Query: "jane"})
	if got := publishedIDs(filtered); !reflect.DeepEqual(got, []string{"p1", "p3"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
}

func TestFilterLibraryAppliesCraftAndSkillExactly(t *testing.T) {
	filtered := FilterLibrary(libraryFixture(), LibraryFilter{Craft: "crochet", Skill: "advanced"})
	if got := publishedIDs(filtered); !reflect.DeepEqual(got, []string{"p3"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
}

func TestFilterLibraryCombinesPredicatesAsIntersection(t *testing.T) {
	published := libraryFixture()
	combined := FilterLibrary(published, LibraryFilter{Query: "jane", Craft: "crochet", Skill: "beginner"})

	stepwise := FilterLibrary(published, LibraryFilter{Query: "jane"})
	stepwise = FilterLibrary(stepwise, LibraryFilter{Craft: "crochet"})
	stepwise = FilterLibrary(stepwise, LibraryFilter{Skill: "beginner"})

	if !reflect.DeepEqual(publishedIDs(combined), publishedIDs(stepwise)) {
		t.Fatalf("combined filter %v differs from stepwise %v", publishedIDs(combined), publishedIDs(stepwise))
	}
	if got := publishedIDs(combined); !reflect.DeepEqual(got, []string{"p1"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
}

func TestFilterLibraryPreservesInputOrder(t *testing.T) {
	filtered := FilterLibrary(libraryFixture(), LibraryFilter{Craft: "crochet"})
	if got := publishedIDs(filtered); !reflect.DeepEqual(got, []string{"p1", "p3"}) {
		t.Fatalf("expected input order preserved, got %v", got)
	}
}

func TestSplitListDropsBlankEntries(t *testing.T) {
	got := SplitList(" wool , , hook,  ")
	if !reflect.DeepEqual(got, []string{"wool", "hook"}) {
		t.Fatalf("unexpected split result: %v", got)
	}
}

func TestSplitListOfEmptyStringIsEmpty(t *testing.T) {
	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}
