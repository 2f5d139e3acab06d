package urls

// Microsoft documentation for setting up the application registration and
// the SharePoint list the form writes to.

// AppRegistration explains how to register the application in Microsoft
// Entra ID and obtain the tenant and client IDs.
const AppRegistration = "https://learn.microsoft.com/entra/identity-platform/quickstart-register-app"

// ClientCredentialsFlow documents the token request used by the form.
const ClientCredentialsFlow = "https://learn.microsoft.com/entra/identity-platform/v2-oauth2-client-creds-grant-flow"

// SharePointListREST documents list item creation through the SharePoint REST API.
const SharePointListREST = "https://learn.microsoft.com/sharepoint/dev/sp-add-ins/working-with-lists-and-list-items-with-rest"
