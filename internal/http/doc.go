// Package http exposes the dashboard backend over HTTP.
//
// The router serves the following endpoints:
//   - POST /config: exchanges an identity-provider credential for a session.
//     Body: {"credential"}. Response: {"userEmail","matchedPerson","isManager",
//     "token","expiresAt"}, or {"error"} with 400, 401, 403 or 429. The route is
//     rate limited per client address.
//   - GET /api/session, GET /api/channels: the caller and the channel table.
//   - GET /api/people, PUT /api/people/{email}, DELETE /api/people/{email}:
//     roster maintenance. Mutations require a manager.
//   - GET /api/shifts?from&to&agent, POST /api/shifts, PUT /api/shifts/{id},
//     DELETE /api/shifts/{id}: shift management. Write responses carry overlap
//     warnings that never block the save.
//   - GET /api/timeoff?from&to&agent&status, POST /api/timeoff,
//     PUT /api/timeoff/{id}/decision, DELETE /api/timeoff/{id}.
//   - GET /api/coverage?date=YYYY-MM-DD, GET /api/reports/agents?from&to.
//   - GET, POST and DELETE /api/locks/{recordID}, POST /api/locks/{recordID}/renew:
//     advisory edit locks. A denied acquisition answers 409 with
//     {"error","holder","holderName","expiresAt"}.
//   - GET /health and GET /metrics.
//
// Every /api route requires an `Authorization: Bearer <token>` header carrying
// the token returned by POST /config. Payloads are defined in internal/api so
// the client and the handlers share the same shapes.
package http
