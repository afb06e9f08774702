package extraction

import "testing"

func TestExtractPredicates_ParsesSimpleSVO(t *testing.T) {
	preds := ExtractPredicates("The project is delayed.")
	if len(preds) != 1 {
		t.Fatalf("expected 1 predicate, got %+v", preds)
	}
	if preds[0].Subject != "the project" || preds[0].Verb != "is" || preds[0].Object != "delayed" {
		t.Fatalf("unexpected predicate: %+v", preds[0])
	}
}

func TestIsContradictingPredicate_NegationFlip(t *testing.T) {
	a := Predicate{Subject: "alice", Verb: "likes", Object: "coffee"}
	b := Predicate{Subject: "alice", Verb: "dislikes", Object: "coffee"}
	if !IsContradictingPredicate(a, b) {
		t.Fatal("expected contradiction")
	}
}

func TestIsContradictingPredicate_SameVerbFamilyDifferentObject(t *testing.T) {
	a := Predicate{Subject: "the meeting", Verb: "is", Object: "cancelled"}
	b := Predicate{Subject: "the meeting", Verb: "is", Object: "confirmed"}
	if !IsContradictingPredicate(a, b) {
		t.Fatal("expected contradiction")
	}
}

func TestIsContradictingPredicate_DifferentSubjectsNeverContradict(t *testing.T) {
	a := Predicate{Subject: "alice", Verb: "likes", Object: "coffee"}
	b := Predicate{Subject: "bob", Verb: "dislikes", Object: "coffee"}
	if IsContradictingPredicate(a, b) {
		t.Fatal("expected no contradiction across different subjects")
	}
}

func TestIsContradictingPredicate_SameClaimIsNotAContradiction(t *testing.T) {
	a := Predicate{Subject: "alice", Verb: "likes", Object: "coffee"}
	b := Predicate{Subject: "alice", Verb: "likes", Object: "coffee"}
	if IsContradictingPredicate(a, b) {
		t.Fatal("identical predicates should not contradict")
	}
}
