// Package uploads отвечает, разрешена ли пользователю загрузка и прослушивание
// треков. Маршрут закрыт middleware RequireAccess, поэтому сюда доходят только
// пользователи с открытым доступом.
package uploads

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/omawina-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/omawina-hub/internal/http/response"
)

func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := middlewarectx.StatusFromContext(r.Context())
	render.JSON(w, r, response.OKWithData(map[string]any{
		"allowed": status.AllowsAccess(),
		"status":  status,
	}))
}
