package httpapi

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const targetUserID = "6f1d8f0a-1111-4222-8333-000000000099"

func expectAdminCheck(mock sqlmock.Sqlmock, userID string, admin bool) {
	rows := sqlmock.NewRows([]string{"?column?"})
	if admin {
		rows.AddRow(1)
	}
	mock.ExpectQuery(`SELECT 1 FROM public\.user_roles WHERE user_id = \$1 AND role = 'admin'`).
		WithArgs(userID).
		WillReturnRows(rows)
}

func TestUnlockSpinForbiddenForNonAdmin(t *testing.T) {
	api, mock := newTestAPI(t)
	expectAdminCheck(mock, testUserID, false)

	rec := doJSON(t, api, http.MethodPost, "/admin/set-25-rides-unlock-spin",
		bearerFor(t, testUserID, testEmail),
		`{"user_id":"`+targetUserID+`"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUnlockSpinUpdatesProfile(t *testing.T) {
	api, mock := newTestAPI(t)
	expectAdminCheck(mock, testUserID, true)
	mock.ExpectQuery(`UPDATE public\.profiles`).
		WithArgs(targetUserID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(targetUserID))

	rec := doJSON(t, api, http.MethodPost, "/admin/set-25-rides-unlock-spin",
		bearerFor(t, testUserID, testEmail),
		`{"user_id":"`+targetUserID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["user_id"] != targetUserID {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUnlockSpinUnknownProfileIs404(t *testing.T) {
	api, mock := newTestAPI(t)
	expectAdminCheck(mock, testUserID, true)
	mock.ExpectQuery(`UPDATE public\.profiles`).
		WithArgs(targetUserID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	rec := doJSON(t, api, http.MethodPost, "/admin/set-25-rides-unlock-spin",
		bearerFor(t, testUserID, testEmail),
		`{"user_id":"`+targetUserID+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSignedIDURLOwnerPath(t *testing.T) {
	api, _ := newTestAPI(t)
	path := testUserID + "/171234.jpg"

	rec := doJSON(t, api, http.MethodGet, "/admin/signed-id-url?path="+path,
		bearerFor(t, testUserID, testEmail), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := "http://api.test/uploads/university-ids/" + path
	if decodeBody(t, rec)["signedUrl"] != want {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestSignedIDURLNonOwnerNeedsAdmin(t *testing.T) {
	api, mock := newTestAPI(t)
	expectAdminCheck(mock, testUserID, false)

	rec := doJSON(t, api, http.MethodGet,
		"/admin/signed-id-url?path="+targetUserID+"/171234.jpg",
		bearerFor(t, testUserID, testEmail), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestSignedIDURLRejectsTraversal(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet,
		"/admin/signed-id-url?path=../../etc/passwd",
		bearerFor(t, testUserID, testEmail), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
