package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/pelusa-v/mailgram/internal/events"
)

const timeLayout = "2006-01-02 15:04"

var allowedExtensions = map[string]events.Kind{
	".png": events.KindImage, ".jpg": events.KindImage, ".jpeg": events.KindImage, ".gif": events.KindImage,
	".mp4": events.KindVideo, ".avi": events.KindVideo, ".mov": events.KindVideo, ".mkv": events.KindVideo,
	".mp3": events.KindAudio, ".wav": events.KindAudio, ".ogg": events.KindAudio, ".m4a": events.KindAudio,
	".pdf": events.KindDocument, ".doc": events.KindDocument, ".docx": events.KindDocument, ".txt": events.KindDocument, ".zip": events.KindDocument,
}

// socket GET /socket/:user_id?name=
func (s *Server) socket(conn *websocket.Conn) {
	userID := strings.TrimSpace(conn.Params("user_id"))
	if userID == "" {
		return
	}
	user := s.store.EnsureUser(userID, strings.TrimSpace(conn.Query("name")))
	if !user.Active {
		s.logger.Info().Str("user", userID).Msg("rejecting inactive user")
		return
	}
	name := strings.TrimSpace(conn.Query("name"))
	if name == "" {
		name = user.Name
	}

	c := newClient(userID, name, conn)
	if !s.hub.join(c) {
		return
	}
	written := make(chan struct{})
	go func() {
		c.writePump()
		close(written)
	}()
	c.readPump(s.hub)
	s.hub.leave(c)
	<-written
}

type clientJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// listClients GET /api/clients?exclude=id
func (s *Server) listClients(c *fiber.Ctx) error {
	exclude := c.Query("exclude")
	s.hub.mu.RLock()
	out := make([]clientJSON, 0, len(s.hub.clients))
	for id, cl := range s.hub.clients {
		if id != exclude {
			out = append(out, clientJSON{ID: id, Name: cl.Name})
		}
	}
	s.hub.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return c.JSON(out)
}

// createGroup POST /api/groups?user_id=&group_id=&name=
func (s *Server) createGroup(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("user_id"))
	groupID := strings.TrimSpace(c.Query("group_id"))
	if userID == "" || groupID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing user_id or group_id")
	}
	if !s.groups.Create(userID, groupID, strings.TrimSpace(c.Query("name"))) {
		return fiber.NewError(fiber.StatusConflict, "group exists or invalid id")
	}
	return c.SendStatus(fiber.StatusCreated)
}

// joinGroup POST /api/groups/:group_id/join?user_id=
func (s *Server) joinGroup(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing user_id")
	}
	if !s.groups.Join(userID, c.Params("group_id")) {
		return fiber.NewError(fiber.StatusNotFound, "group not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// leaveGroup POST /api/groups/:group_id/leave?user_id=
func (s *Server) leaveGroup(c *fiber.Ctx) error {
	if !s.groups.Leave(strings.TrimSpace(c.Query("user_id")), c.Params("group_id")) {
		return fiber.NewError(fiber.StatusForbidden, "not a member, or the creator")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// reportUser POST /report_user/:user_id with form fields reporter_id, reason.
func (s *Server) reportUser(c *fiber.Ctx) error {
	reported := c.Params("user_id")
	reason := strings.TrimSpace(c.FormValue("reason"))
	reporter := strings.TrimSpace(c.FormValue("reporter_id"))
	if reason == "" || reporter == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing reporter_id or reason")
	}
	if _, ok := s.store.User(reported); !ok {
		return fiber.ErrNotFound
	}
	r := s.store.AddReport(ReportRecord{ReporterID: reporter, ReportedID: reported, Reason: reason, Time: s.clock.Now().UTC()})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": r.ID})
}

// upload POST /upload, multipart field "file".
func (s *Server) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(uploadResponse{Error: "no file"})
	}
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(fh.Filename))]; !ok {
		return c.Status(fiber.StatusBadRequest).JSON(uploadResponse{Error: "file type not allowed"})
	}
	if fh.Size > s.maxUpload {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(uploadResponse{Error: "file too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	id := s.store.SaveUpload(filepath.Base(fh.Filename), fh.Header.Get(fiber.HeaderContentType), data)
	s.logger.Debug().Str("file", fh.Filename).Int("bytes", len(data)).Msg("upload stored")
	return c.JSON(uploadResponse{Success: true, FileURL: "/uploads/" + id})
}

// serveUpload GET /uploads/:id
func (s *Server) serveUpload(c *fiber.Ctx) error {
	u, ok := s.store.file(c.Params("id"))
	if !ok {
		return fiber.ErrNotFound
	}
	if u.contentType != "" {
		c.Set(fiber.HeaderContentType, u.contentType)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", u.name))
	return c.Send(u.data)
}

// stats GET /admin/api/stats
func (s *Server) stats(c *fiber.Ctx) error {
	return c.JSON(s.store.Stats(s.groups.Len()))
}

// bulkAction POST /admin/api/bulk-action with {action, items} over user ids.
func (s *Server) bulkAction(c *fiber.Ctx) error {
	var req bulkRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(bulkResponse{Message: "Invalid request"})
	}
	if len(req.Items) == 0 {
		return c.JSON(bulkResponse{Message: "No items selected"})
	}

	var apply func(id string) bool
	switch req.Action {
	case "activate":
		apply = func(id string) bool { return s.store.SetActive(id, true) }
	case "deactivate":
		apply = func(id string) bool { return s.store.SetActive(id, false) }
	case "delete":
		apply = s.removeUser
	default:
		return c.JSON(bulkResponse{Message: "Invalid action"})
	}

	n := 0
	for _, id := range req.Items {
		if apply(id) {
			n++
		}
	}
	s.logger.Info().Str("action", req.Action).Int("items", n).Msg("bulk action")
	return c.JSON(bulkResponse{Success: true, Message: fmt.Sprintf("%d item(s) updated", n)})
}

func (s *Server) removeUser(id string) bool {
	if !s.store.DeleteUser(id) {
		return false
	}
	s.groups.RemoveUser(id)
	return true
}

// toggleUser GET /admin/toggle_user/:id
func (s *Server) toggleUser(c *fiber.Ctx) error {
	if _, ok := s.store.ToggleActive(c.Params("id")); !ok {
		return fiber.ErrNotFound
	}
	return c.Redirect("/admin/users")
}

// deleteUser GET /admin/delete_user/:id
func (s *Server) deleteUser(c *fiber.Ctx) error {
	if !s.removeUser(c.Params("id")) {
		return fiber.ErrNotFound
	}
	return c.Redirect("/admin/users")
}

// handleReport GET /admin/handle_report/:id/:action
func (s *Server) handleReport(c *fiber.Ctx) error {
	var status ReportStatus
	switch c.Params("action") {
	case "resolve":
		status = ReportResolved
	case "review":
		status = ReportReviewed
	default:
		return c.Redirect("/admin/reports")
	}
	if !s.store.SetReportStatus(c.Params("id"), status) {
		return fiber.ErrNotFound
	}
	return c.Redirect("/admin/reports")
}

// dashboard GET /admin
func (s *Server) dashboard(c *fiber.Ctx) error {
	stats := s.store.Stats(s.groups.Len())
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cards := make([]fiber.Map, 0, len(keys))
	for _, k := range keys {
		cards = append(cards, fiber.Map{"Key": k, "Value": stats[k]})
	}
	return c.Render("dashboard", fiber.Map{"Stats": cards})
}

type pageColumn struct {
	Key   string
	Label string
}

type pageLink struct {
	Href  string
	Label string
}

type pageRow struct {
	ID      string
	Cells   []string
	Actions []pageLink
}

type tablePage struct {
	Kind       string
	Title      string
	Columns    []pageColumn
	Rows       []pageRow
	HasActions bool
}

// adminTable GET /admin/{users,chats,groups,reports}
func (s *Server) adminTable(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var page tablePage
		switch kind {
		case "users":
			page = s.usersPage()
		case "chats":
			page = s.chatsPage()
		case "groups":
			page = s.groupsPage()
		case "reports":
			page = s.reportsPage()
		default:
			return fiber.ErrNotFound
		}
		page.Kind = kind
		return c.Render("table", page)
	}
}

func columns(pairs ...string) []pageColumn {
	out := make([]pageColumn, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, pageColumn{Key: pairs[i], Label: pairs[i+1]})
	}
	return out
}

func (s *Server) userName(id string) string {
	if u, ok := s.store.User(id); ok {
		return u.Name
	}
	return id
}

func (s *Server) usersPage() tablePage {
	page := tablePage{
		Title:      "Users",
		Columns:    columns("id", "ID", "name", "Name", "username", "Username", "email", "Email", "phone", "Phone", "status", "Status", "created", "Created"),
		HasActions: true,
	}
	for _, u := range s.store.Users() {
		status, toggle := "active", "Deactivate"
		if !u.Active {
			status, toggle = "inactive", "Activate"
		}
		page.Rows = append(page.Rows, pageRow{
			ID:    u.ID,
			Cells: []string{u.ID, u.Name, u.Username, u.Email, u.Phone, status, u.Created.Format(timeLayout)},
			Actions: []pageLink{
				{Href: "/admin/toggle_user/" + u.ID, Label: toggle},
				{Href: "/admin/delete_user/" + u.ID, Label: "Delete"},
			},
		})
	}
	return page
}

func (s *Server) chatsPage() tablePage {
	page := tablePage{
		Title:   "Messages",
		Columns: columns("id", "ID", "sender", "Sender", "receiver", "Receiver", "type", "Type", "content", "Content", "time", "Time"),
	}
	for _, m := range s.store.Messages() {
		receiver := s.userName(m.ReceiverID)
		if m.GroupID != "" {
			receiver = "group " + m.GroupID
		}
		page.Rows = append(page.Rows, pageRow{
			ID:    m.ID,
			Cells: []string{m.ID, s.userName(m.SenderID), receiver, string(m.Kind), m.Content, m.Time.Format(timeLayout)},
		})
	}
	return page
}

func (s *Server) groupsPage() tablePage {
	page := tablePage{
		Title:   "Groups",
		Columns: columns("id", "ID", "name", "Name", "group_id", "Group ID", "creator", "Creator", "members", "Members", "created", "Created"),
	}
	for i, g := range s.groups.List() {
		page.Rows = append(page.Rows, pageRow{
			ID:    g.ID,
			Cells: []string{strconv.Itoa(i + 1), g.Name, g.ID, s.userName(g.CreatorID), strconv.Itoa(g.Members), g.Created.Format(timeLayout)},
		})
	}
	return page
}

func (s *Server) reportsPage() tablePage {
	page := tablePage{
		Title:      "Reports",
		Columns:    columns("id", "ID", "reporter", "Reporter", "reported", "Reported", "reason", "Reason", "status", "Status", "time", "Time"),
		HasActions: true,
	}
	for _, r := range s.store.Reports() {
		row := pageRow{
			ID:    r.ID,
			Cells: []string{r.ID, s.userName(r.ReporterID), s.userName(r.ReportedID), r.Reason, string(r.Status), r.Time.Format(timeLayout)},
		}
		if r.Status != ReportResolved {
			row.Actions = []pageLink{
				{Href: "/admin/handle_report/" + r.ID + "/review", Label: "Review"},
				{Href: "/admin/handle_report/" + r.ID + "/resolve", Label: "Resolve"},
			}
		}
		page.Rows = append(page.Rows, row)
	}
	return page
}
