package busaddr

import "testing"

func TestServiceObjectRoundTrip(t *testing.T) {
	for _, module := range []string{"python", "echomod", "a.b-c_d"} {
		svc := Service(module)
		obj := Object(module)

		gotFromSvc, ok := ModuleFromService(svc)
		if !ok || gotFromSvc != module {
			t.Fatalf("ModuleFromService(%q) = %q, %v; want %q, true", svc, gotFromSvc, ok, module)
		}

		gotFromObj, ok := ModuleFromObject(obj)
		if !ok || gotFromObj != module {
			t.Fatalf("ModuleFromObject(%q) = %q, %v; want %q, true", obj, gotFromObj, ok, module)
		}
	}
}

func TestDistinctModulesNeverCollide(t *testing.T) {
	if Service("python") == Service("ruby") {
		t.Fatal("distinct modules produced the same service name")
	}
	if Object("python") == Object("ruby") {
		t.Fatal("distinct modules produced the same object path")
	}
}

func TestModuleFromServiceRejectsWrongPrefix(t *testing.T) {
	if _, ok := ModuleFromService("com.example.Other"); ok {
		t.Fatal("expected ok=false for a service name outside our prefix")
	}
}

func TestUnitInstance(t *testing.T) {
	if got, want := UnitInstance("python"), "uprocd@python"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCgrmvdNamesAreFixed(t *testing.T) {
	if CgrmvdService != "com.refi64.uprocd.Cgrmvd" {
		t.Fatalf("unexpected CgrmvdService: %q", CgrmvdService)
	}
	if CgrmvdObject != "/com/refi64/uprocd/Cgrmvd" {
		t.Fatalf("unexpected CgrmvdObject: %q", CgrmvdObject)
	}
}
