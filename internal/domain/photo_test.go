package domain

import "testing"

func fullSet() PhotoSet {
	return PhotoSet{
		GenerationGrandfather: {Filename: "g.jpg", Data: []byte{1}},
		GenerationFather:      {Filename: "f.jpg", Data: []byte{2}},
		GenerationSon:         {Filename: "s.jpg", Data: []byte{3}},
	}
}

func TestPhotoSetMissing(t *testing.T) {
	set := fullSet()
	if !set.Complete() {
		t.Fatalf("full set should be complete")
	}
	delete(set, GenerationFather)
	set[GenerationSon] = Photo{Filename: "empty.jpg"}
	if set.Complete() {
		t.Fatalf("set without father should be incomplete")
	}
	if g, ok := set.Missing(); !ok || g != GenerationFather {
		t.Fatalf("Missing() = %q, %v; want father", g, ok)
	}
}

func TestPhotoSetCloneIsDeep(t *testing.T) {
	set := fullSet()
	clone := set.Clone()
	set[GenerationSon].Data[0] = 9
	if clone[GenerationSon].Data[0] != 3 {
		t.Fatalf("clone shares backing array with original")
	}
}

func TestUploadedSetFallbackMode(t *testing.T) {
	set := UploadedSet{
		GenerationGrandfather: {URL: "https://cdn/g.jpg"},
		GenerationFather:      {URL: "https://cdn/f.jpg"},
		GenerationSon:         {URL: "https://cdn/s.jpg"},
	}
	if set.UsingFallbackMode() {
		t.Fatalf("durable set reported fallback mode")
	}
	set[GenerationFather] = UploadedPhoto{URL: "data:image/jpeg;base64,AA==", Fallback: true}
	if !set.UsingFallbackMode() {
		t.Fatalf("inline entry should switch on fallback mode")
	}

	urls := PhotoURLsFrom(set)
	if urls.Get(GenerationGrandfather) != "https://cdn/g.jpg" || urls.Father != "data:image/jpeg;base64,AA==" {
		t.Fatalf("PhotoURLsFrom() = %+v", urls)
	}
	if m := urls.Map(); len(m) != 3 || m["son"] != "https://cdn/s.jpg" {
		t.Fatalf("Map() = %v", m)
	}
}

func TestPreviewSetReady(t *testing.T) {
	ps := PreviewSet{GenerationGrandfather: "/p/1", GenerationFather: "/p/2"}
	if ps.Ready() {
		t.Fatalf("partial preview set reported ready")
	}
	ps[GenerationSon] = "/p/3"
	if !ps.Ready() {
		t.Fatalf("full preview set should be ready")
	}
}

func TestOwnerAuthenticated(t *testing.T) {
	if (Owner{}).Authenticated() {
		t.Fatalf("zero owner should not be authenticated")
	}
	if (Owner{UserID: "  "}).Authenticated() {
		t.Fatalf("blank user id should not be authenticated")
	}
	o := Owner{UserID: "u1", Email: "a@b.c"}
	if !o.Authenticated() || o.String() != "u1 <a@b.c>" {
		t.Fatalf("owner = %v", o)
	}
}
