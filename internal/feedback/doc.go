// Package feedback defines the six-field record collected by the
// "Atendimento - DP" form and its mapping to the SharePoint list columns.
//
// Field access goes through the form field names (matricula, nome, funcao,
// lider, duvidaProblema, data) so every surface (HTML form, WebSocket
// session, terminal form, CLI flags) can update fields by name. The only
// rename at the wire boundary is duvidaProblema, sent as "Dúvida/Problema".
package feedback
