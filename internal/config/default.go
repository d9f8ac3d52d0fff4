package config

const defaultTemplate = `server:
  addr: ":8080"
  jwt_secret: "change-me-in-production"
  token_ttl: 720h
  reset_token_ttl: 1h
  base_path: /api
  # database: .bob/server.db
  # webhooks:
  #   - url: http://localhost:9000/mail
  #     events: [user.password_reset_requested]

client:
  base_url: http://localhost:8080
  timeout: 10s
  retry:
    initial_interval: 200ms
    max_interval: 5s
    max_elapsed_time: 30s

logging:
  level: info
  format: text
  include_caller: false

generator:
  actions_per_plan: 3

catalog:
  job_groups:
    - rome_id: D1102
      name: Boulangerie - viennoiserie
      diplomas: [CAP Boulanger]
      skills: [Pétrissage, Façonnage, Cuisson]
      jobs:
        - {code_ogr: "12006", name: Boulanger}
        - {code_ogr: "12007", name: Boulanger-pâtissier}
      num_available_offers: 420
      market_stress: 0.6
      work_environments: [Boulangerie artisanale, Grande distribution]
    - rome_id: G1602
      name: Personnel de cuisine
      diplomas: [CAP Cuisine]
      skills: [Hygiène alimentaire, Dressage]
      driving_licenses: []
      jobs:
        - {code_ogr: "11573", name: Cuisinier}
        - {code_ogr: "11574", name: Commis de cuisine}
      num_available_offers: 1350
      market_stress: 0.3
      work_environments: [Restauration collective, Restaurant traditionnel]
    - rome_id: N4101
      name: Conduite de transport de marchandises
      diplomas: [Titre professionnel conducteur]
      skills: [Arrimage, Réglementation sociale]
      driving_licenses: [C, CE]
      jobs:
        - {code_ogr: "12859", name: Chauffeur poids lourd}
      num_available_offers: 980
      market_stress: 0.4
      work_environments: [Messagerie, Transport frigorifique]

  job_boards:
    - title: Pôle emploi
      link: https://candidat.pole-emploi.fr/offres/recherche
      is_well_known: true
    - title: Indeed
      link: https://fr.indeed.com
      is_well_known: true
    - title: L'Hôtellerie Restauration
      link: https://www.lhotellerie-restauration.fr/emplois
      filters: [for-job-group(G16)]
      rome_ids: [G1602]
    - title: Bourse du transport
      link: https://www.emploi-transport.fr
      filters: [for-job-group(N41)]
      rome_ids: [N4101]
    - title: Mission Locale
      link: https://www.unml.info
      filters: [for-young(25)]

  action_templates:
    - id: update-cv
      title: Mettre à jour son CV
      short_description: Ajoutez vos dernières expériences et compétences.
      advice_kind: improve-success-rate
      cool_down_days: 30
    - id: call-employer
      title: Appeler un employeur
      short_description: Un appel marque souvent plus qu'un email.
      advice_kind: spontaneous-application
      cool_down_days: 7
      steps:
        - {id: find-number, title: Trouver le numéro du recruteur, active_duration_minutes: 10}
        - {id: prepare-pitch, title: Préparer son pitch, active_duration_minutes: 20}
        - {id: call, title: Passer l'appel, active_duration_minutes: 10, waiting_duration_minutes: 1440}
    - id: job-board-alert
      title: Créer une alerte sur un site d'offres
      link: https://candidat.pole-emploi.fr
      advice_kind: job-boards
      cool_down_days: 60
    - id: visit-company
      title: Se présenter dans une entreprise
      advice_kind: spontaneous-application
      cool_down_days: 14
    - id: explore-related-job
      title: Explorer un métier proche
      advice_kind: better-job-in-group
      cool_down_days: 21
    - id: explore-work-env
      title: Découvrir un autre environnement de travail
      advice_kind: other-work-env
      cool_down_days: 21
    - id: network-event
      title: Participer à un événement de recrutement
      cool_down_days: 10
    - id: linkedin-profile
      title: Compléter son profil professionnel en ligne
      cool_down_days: 45
    - id: driving-license-funding
      title: Se renseigner sur le financement du permis
      short_description: Les offres du métier demandent un permis.
      cool_down_days: 90
      filters: [for-driving-license, for-unemployed]

  advices:
    - {id: improve-success-rate, kind: improve-success-rate}
    - {id: job-boards, kind: job-boards}
    - {id: spontaneous-application, kind: spontaneous-application}
    - {id: better-job-in-group, kind: better-job-in-group, filters: [for-job-group]}
    - {id: other-work-env, kind: other-work-env, filters: [for-job-group]}

  companies:
    - {name: Au Bon Pain, city_name: Lyon, rome_id: D1102}
    - {name: Maison Fournier, city_name: Paris, rome_id: D1102}
    - {name: Brasserie du Port, city_name: Marseille, rome_id: G1602}
    - {name: TransAlpes, city_name: Grenoble, rome_id: N4101}
`
