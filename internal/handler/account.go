package handler

import "net/http"

// GetAccount handles GET /accounts/{id}.
// The active journey and the journey history are returned expanded.
func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeRequestError(w, "id must be a UUID")
		return
	}

	details, err := s.accounts.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountToResponse(details))
}
