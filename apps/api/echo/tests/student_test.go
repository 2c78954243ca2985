package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/tests"
)

func Test_studentApi_query(t *testing.T) {
	db.Reset()
	createAdmin(t, "admin@school.cd", true)
	token := getToken(t, "admin@school.cd")

	tests := []httpTest{
		{name: "auth required", path: "/api/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty", path: "/api/students", token: token, wantCode: http.StatusOK, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	s1 := testutil.CreateStudent(t, stdRepo, "Amani", "1")
	s2 := testutil.CreateStudent(t, stdRepo, "Bahati", "2")

	t.Run("insertion order", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/students", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, s1, s2)}, rec)
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/students/"+s2.ID, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, s2)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/students/unknown", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
}

func Test_studentApi_create(t *testing.T) {
	db.Reset()
	createAdmin(t, "admin@school.cd", true)
	token := getToken(t, "admin@school.cd")

	t.Run("missing fields are never written", func(t *testing.T) {
		data := testutil.NewStudentData("Amani", "1")
		data.FirstName, data.Class, data.ParentContact = "", " ", "099876543"

		req, rec := newAuthRequest(http.MethodPost, "/api/students", token, marchallObj(t, data))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"firstName":     "this field is required",
				"class":         "this field is required",
				"parentContact": "parentContact must be exactly 10 digits",
			}),
		}, rec)

		students, err := stdRepo.QueryAllStudents(context.Background())
		require.NoError(t, err)
		assert.Empty(t, students)
	})

	t.Run("created", func(t *testing.T) {
		data := testutil.NewStudentData("Amani", "1")
		req, rec := newAuthRequest(http.MethodPost, "/api/students", token, marchallObj(t, data))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var created student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, data, created.Data)

		students, err := stdRepo.QueryAllStudents(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []student.Student{created}, students)
	})
}

func Test_studentApi_update(t *testing.T) {
	db.Reset()
	createAdmin(t, "admin@school.cd", true)
	token := getToken(t, "admin@school.cd")
	s1 := testutil.CreateStudent(t, stdRepo, "Amani", "1")
	s2 := testutil.CreateStudent(t, stdRepo, "Bahati", "2")

	// the identifier in the payload is ignored
	payload := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(marchallObj(t, s2), &payload))
	payload["id"] = "hijacked"
	payload["section"] = "C"

	req, rec := newAuthRequest(http.MethodPut, "/api/students/"+s2.ID, token, marchallObj(t, payload))
	app.ServeHTTP(rec, req)
	want := s2
	want.Section = "C"
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)

	students, err := stdRepo.QueryAllStudents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []student.Student{s1, want}, students)

	req, rec = newAuthRequest(http.MethodPut, "/api/students/unknown", token, marchallObj(t, s1.Data))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_studentApi_destroy(t *testing.T) {
	db.Reset()
	createAdmin(t, "admin@school.cd", true)
	token := getToken(t, "admin@school.cd")
	s1 := testutil.CreateStudent(t, stdRepo, "Amani", "1")
	s2 := testutil.CreateStudent(t, stdRepo, "Bahati", "2")

	tests := []httpTest{
		{name: "auth required", path: "/api/students/" + s1.ID, wantCode: http.StatusUnauthorized},
		{name: "existing", path: "/api/students/" + s1.ID, token: token, wantCode: http.StatusNoContent},
		{name: "again", path: "/api/students/" + s1.ID, token: token, wantCode: http.StatusNoContent},
		{name: "unknown", path: "/api/students/unknown", token: token, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	students, err := stdRepo.QueryAllStudents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []student.Student{s2}, students)
}
