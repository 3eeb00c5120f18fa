package handlers

import (
	"net/http"
	"strconv"

	"complaints-service/apperrors"
	"complaints-service/database"
	"complaints-service/models"
	"complaints-service/service"
	"complaints-service/storage"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// ComplaintsHandler handles HTTP requests for the complaints service
type ComplaintsHandler struct {
	lifecycle *service.LifecycleService
	store     *database.ComplaintService
	audit     *database.AuditWriter
	storage   *storage.Client
}

// NewComplaintsHandler creates a new handlers instance
func NewComplaintsHandler(lifecycle *service.LifecycleService, store *database.ComplaintService, audit *database.AuditWriter, storageClient *storage.Client) *ComplaintsHandler {
	return &ComplaintsHandler{
		lifecycle: lifecycle,
		store:     store,
		audit:     audit,
		storage:   storageClient,
	}
}

// HealthCheck returns the service health status
func (h *ComplaintsHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "complaints-service",
	})
}

// SubmitComplaint handles citizen complaint submission. Anonymous.
func (h *ComplaintsHandler) SubmitComplaint(c *gin.Context) {
	var req models.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Invalid JSON in complaint submission: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	actor := c.GetString("user_id")
	if actor == "" {
		actor = "anonymous"
	}

	complaint, err := h.lifecycle.Submit(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, "submit complaint", err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

// CreateUpload requests a write-capable upload target for a photo so the
// client can upload bytes directly to blob storage. Anonymous, since photos
// are attached at submission time.
func (h *ComplaintsHandler) CreateUpload(c *gin.Context) {
	var req models.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	uploadURL, key, err := h.storage.UploadTarget(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, "create upload target", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": uploadURL, "key": key})
}

// TrackComplaint fetches a complaint by its public tracking token. Anonymous.
func (h *ComplaintsHandler) TrackComplaint(c *gin.Context) {
	complaint, err := h.store.GetComplaintByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, "track complaint", err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// ListComplaints returns complaints matching the query filters. Admin only.
func (h *ComplaintsHandler) ListComplaints(c *gin.Context) {
	filter := models.ComplaintFilter{
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		GroupName:  c.Query("group"),
		AssignedTo: c.Query("assigned_to"),
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
	complaints, err := h.store.ListComplaints(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list complaints", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints, "count": len(complaints)})
}

// GetComplaint fetches a complaint by id.
func (h *ComplaintsHandler) GetComplaint(c *gin.Context) {
	complaint, err := h.store.GetComplaint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get complaint", err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// UpdateComplaint applies an allow-listed field patch. Admin only.
func (h *ComplaintsHandler) UpdateComplaint(c *gin.Context) {
	var req models.UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	complaint, err := h.lifecycle.UpdateFields(c.Request.Context(), c.Param("id"), req, c.GetString("user_id"))
	if err != nil {
		respondError(c, "update complaint", err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// BulkAction applies one action to many complaints. Partial success is a
// normal outcome, reported per item. Admin only.
func (h *ComplaintsHandler) BulkAction(c *gin.Context) {
	var req models.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.lifecycle.BulkApply(c.Request.Context(), req, c.GetString("user_id"))
	if err != nil {
		respondError(c, "bulk action", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AssignComplaint binds a complaint to a worker. Admin only.
func (h *ComplaintsHandler) AssignComplaint(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	complaint, assignment, err := h.lifecycle.Assign(c.Request.Context(), c.Param("id"), req.WorkerID, c.GetString("user_id"), req.Note)
	if err != nil {
		respondError(c, "assign complaint", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint, "assignment": assignment})
}

// SubmitReport accepts a worker's resolution report. Worker only.
func (h *ComplaintsHandler) SubmitReport(c *gin.Context) {
	var req models.SubmitWorkerReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	report, complaint, err := h.lifecycle.SubmitReport(c.Request.Context(), c.Param("id"), c.GetString("user_id"), req)
	if err != nil {
		respondError(c, "submit report", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report, "complaint": complaint})
}

// ListComplaintReports returns all reports for one complaint. Admin only.
func (h *ComplaintsHandler) ListComplaintReports(c *gin.Context) {
	reports, err := h.store.ListWorkerReports(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "list complaint reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ListPendingReports returns all reports awaiting review. Admin only.
func (h *ComplaintsHandler) ListPendingReports(c *gin.Context) {
	reports, err := h.store.ListPendingReports(c.Request.Context())
	if err != nil {
		respondError(c, "list pending reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// VerifyComplaint accepts a worker report and resolves the complaint. Admin only.
func (h *ComplaintsHandler) VerifyComplaint(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	complaint, err := h.lifecycle.Verify(c.Request.Context(), c.Param("id"), req.ReportID, c.GetString("user_id"), req.Note)
	if err != nil {
		respondError(c, "verify complaint", err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// RejectComplaint rejects a worker report and reopens the complaint. Admin only.
func (h *ComplaintsHandler) RejectComplaint(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	complaint, err := h.lifecycle.Reject(c.Request.Context(), c.Param("id"), req.ReportID, c.GetString("user_id"), req.Note)
	if err != nil {
		respondError(c, "reject complaint", err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// QueueForPortal marks a resolved complaint for manual portal export. Admin only.
func (h *ComplaintsHandler) QueueForPortal(c *gin.Context) {
	job, complaint, err := h.lifecycle.QueueForPortal(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, "queue for portal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "complaint": complaint})
}

// ListMyComplaints returns complaints assigned to the calling worker.
func (h *ComplaintsHandler) ListMyComplaints(c *gin.Context) {
	filter := models.ComplaintFilter{
		AssignedTo: c.GetString("user_id"),
		Status:     c.Query("status"),
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
	complaints, err := h.store.ListComplaints(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list worker complaints", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints, "count": len(complaints)})
}

// ListAuditLog returns the audit trail for a complaint. Admin only.
func (h *ComplaintsHandler) ListAuditLog(c *gin.Context) {
	entries, err := h.audit.ListByComplaint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "list audit log", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetPhotoURLs resolves a complaint's photo keys to signed read URLs.
func (h *ComplaintsHandler) GetPhotoURLs(c *gin.Context) {
	complaint, err := h.store.GetComplaint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get complaint photos", err)
		return
	}
	urls := h.storage.ResolveAll(c.Request.Context(), complaint.PhotoKeys)
	c.JSON(http.StatusOK, gin.H{"urls": urls})
}

// respondError maps domain errors to HTTP statuses and logs server faults.
func respondError(c *gin.Context, operation string, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("Failed to %s: %v", operation, err)
		c.JSON(status, models.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, models.ErrorResponse{Error: err.Error()})
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
