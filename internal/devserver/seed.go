package devserver

import "time"

// Seed fills an empty store with a few users, a group and a pending report
// so the admin pages have something to show.
func Seed(store *Store, groups *Groups, now time.Time) {
	now = now.UTC()
	users := []UserRecord{
		{ID: "1", Name: "Ann Lee", Username: "ann", Email: "ann@mailgram.test", Phone: "+15550001", Active: true},
		{ID: "2", Name: "Bob Stone", Username: "bob", Email: "bob@mailgram.test", Phone: "+15550002", Active: true},
		{ID: "3", Name: "Cid Moss", Username: "cid", Email: "cid@mailgram.test", Phone: "+15550003"},
	}
	for i, u := range users {
		u.Created = now.Add(time.Duration(i) * time.Minute)
		store.AddUser(u)
	}
	if groups.Create("1", "general", "General") {
		groups.Join("2", "general")
	}
	store.AddReport(ReportRecord{ReporterID: "2", ReportedID: "3", Reason: "spam", Time: now})
}
