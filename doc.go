// Package schemathesis binds API schemas (Swagger 2.0 / OpenAPI 3) to Go
// tests so that a property-based testing engine can derive cases from the
// schema and feed them to the test.
//
// A Parametrizer owns a schema source and base engine settings. The schema
// is loaded lazily, exactly once, and shared by every test bound through it:
//
//	var petstore = schemathesis.FromPath("testdata/petstore.yaml",
//	    schemathesis.WithSetting(schemathesis.MaxExamples, 50))
//
//	var testPets = petstore.Parametrize(schemathesis.Settings{
//	    schemathesis.Deadline: time.Second,
//	}).Must(func(t schemathesis.T, c schemathesis.Case) {
//	    // exercise c.Operation against the service under test
//	})
//
// Settings passed to Parametrize override the base settings for that test
// only. Decorated tests carry a Marker with the shared schema and the merged
// settings; IsTest and MarkerOf recognize them:
//
//	func TestPets(t *testing.T) {
//	    runner.Run(t, testPets)
//	}
//
// Sources may be an in-memory mapping (Raw), a loader function (Func), a
// file (Path), or a URI (URI) with file, http, and https schemes.
package schemathesis
