package simhash

import (
	"testing"
)

const (
	noteA = "今天给大家分享三款秋冬必备的口红，第一款是豆沙色，非常显白，日常通勤都可以用；第二款是枫叶红，适合约会；第三款是奶茶色，素颜也能驾驭。"
	noteB = "今天给大家分享三款秋冬必备的口红，第一款是豆沙色，特别显白，日常通勤都可以用；第二款是枫叶红，适合约会；第三款是奶茶色，素颜也能驾驭！"
	noteC = "周末带娃去了城郊的农场，体验了摘草莓和喂小羊，孩子玩得特别开心，推荐给有宝宝的家庭，门票六十元，记得提前预约。"
)

func TestFingerprint_IdenticalTexts(t *testing.T) {
	if Fingerprint(noteA) != Fingerprint(noteA) {
		t.Error("identical texts produced different fingerprints")
	}
}

func TestFingerprint_IgnoresPunctuationAndCase(t *testing.T) {
	if Fingerprint("Hello, 世界！") != Fingerprint("hello 世界") {
		t.Error("punctuation and case should not change the fingerprint")
	}
}

func TestFingerprint_SimilarTexts(t *testing.T) {
	dist := Distance(Fingerprint(noteA), Fingerprint(noteB))
	if dist > 10 {
		t.Errorf("similar texts have too large distance: %d", dist)
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	dist := Distance(Fingerprint(noteA), Fingerprint(noteC))
	if dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestFingerprint_Empty(t *testing.T) {
	if got := Fingerprint("  ，。！"); got != 0 {
		t.Errorf("Fingerprint of punctuation = %d, want 0", got)
	}
}

func TestIndexCheck(t *testing.T) {
	ix := NewIndex(3)

	if got := ix.Check("first", noteA); got != "" {
		t.Errorf("first entry matched %q", got)
	}
	if got := ix.Check("other", noteC); got != "" {
		t.Errorf("unrelated note matched %q", got)
	}
	if got := ix.Check("repost", noteA); got != "first" {
		t.Errorf("repost matched %q, want first", got)
	}
	if got := ix.Check("blank", "  "); got != "" {
		t.Errorf("blank body matched %q", got)
	}
}
